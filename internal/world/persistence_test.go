package world

import (
	"context"
	"testing"

	"github.com/annel0/navgrid/internal/storage"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionManager_UnloadSavesAndActivateRestores(t *testing.T) {
	key := RegionKey{X: 0, Y: 0}
	store := storage.NewMemoryStore()
	rm := NewRegionManager(flatTerrain(), testNavConfig(), testWorldConfig())
	rm.SetStore(store, 0)
	require.NoError(t, rm.ActivateRegion(key))

	tree, err := rm.PlaceEntity(entity.EntityTypeTree, vec.Vec2Float{X: 3.5, Y: 3.5})
	require.NoError(t, err)
	tree.Payload["age"] = 12.0
	deer, err := rm.PlaceEntity(entity.EntityTypeAnimal, vec.Vec2Float{X: 8.5, Y: 8.5})
	require.NoError(t, err)

	require.True(t, rm.UnloadRegion(key))
	_, ok := rm.GetEntity(tree.ID)
	assert.False(t, ok, "Выгрузка убирает сущности из мира")

	snap, found, err := store.Load(context.Background(), 0, 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.Entities, 2)
	assert.Equal(t, tree.ID, snap.Entities[0].ID, "Снимок отсортирован по ID")
	assert.Equal(t, "animal", snap.Entities[1].Type)

	require.NoError(t, rm.ActivateRegion(key))
	restored, ok := rm.GetEntity(tree.ID)
	require.True(t, ok)
	assert.Equal(t, entity.EntityTypeTree, restored.Type)
	assert.Equal(t, vec.Vec2Float{X: 3.5, Y: 3.5}, restored.PrecisePos)
	assert.Equal(t, 12.0, restored.Payload["age"])

	infos := rm.Regions()
	require.Len(t, infos, 1)
	assert.Equal(t, 2, infos[0].Entities)
	assert.Equal(t, 1, infos[0].Movers, "Животное снова получает ИИ")

	// Занятость пересчитывается по восстановленным сущностям
	_, _, err = rm.GetRandomPosMatching(key, landPredicates())
	require.NoError(t, err)
	assert.True(t, fieldUsed(t, rm, key, vec.Vec2Float{X: 3.5, Y: 3.5}))

	next, err := rm.PlaceEntity(entity.EntityTypeTree, vec.Vec2Float{X: 1.5, Y: 1.5})
	require.NoError(t, err)
	assert.Greater(t, next.ID, deer.ID, "Новые ID не пересекаются с восстановленными")
}

func TestRegionManager_SaveAll(t *testing.T) {
	store := storage.NewMemoryStore()
	rm := NewRegionManager(flatTerrain(), testNavConfig(), testWorldConfig())
	rm.SetStore(store, 0)
	require.NoError(t, rm.ActivateRegion(RegionKey{X: 0, Y: 0}))
	require.NoError(t, rm.ActivateRegion(RegionKey{X: 1, Y: 0}))

	_, err := rm.PlaceEntity(entity.EntityTypeStructure, vec.Vec2Float{X: 20.5, Y: 2.5})
	require.NoError(t, err)
	require.NoError(t, rm.SaveAll(context.Background()))

	snap, found, err := store.Load(context.Background(), 1, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, snap.Entities, 1)

	snap, found, err = store.Load(context.Background(), 0, 0)
	require.NoError(t, err)
	require.True(t, found, "Пустой регион тоже сохраняется")
	assert.Empty(t, snap.Entities)
}

func TestRegionManager_RestoreSkipsForeignRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &storage.RegionSnapshot{
		X: 0,
		Y: 0,
		Entities: []storage.EntityRecord{
			{ID: 5000, Type: "tree", X: 2.5, Y: 2.5},
			{ID: 5001, Type: "dragon", X: 3.5, Y: 3.5},
			{ID: 5002, Type: "tree", X: 40, Y: 2.5},
		},
	}))

	rm := NewRegionManager(flatTerrain(), testNavConfig(), testWorldConfig())
	rm.SetStore(store, 0)
	require.NoError(t, rm.ActivateRegion(RegionKey{X: 0, Y: 0}))

	_, ok := rm.GetEntity(5000)
	assert.True(t, ok)
	_, ok = rm.GetEntity(5001)
	assert.False(t, ok, "Неизвестный тип пропускается")
	_, ok = rm.GetEntity(5002)
	assert.False(t, ok, "Запись вне региона пропускается")
}

func TestRegionManager_NoStore(t *testing.T) {
	rm := newTestManager(t, flatTerrain(), RegionKey{X: 0, Y: 0})
	assert.NoError(t, rm.SaveAll(context.Background()))
	assert.True(t, rm.UnloadRegion(RegionKey{X: 0, Y: 0}))
}
