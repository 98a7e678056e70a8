package entity

import (
	"testing"

	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_BlocksFreePosFinder(t *testing.T) {
	tests := []struct {
		typ    EntityType
		blocks bool
	}{
		{EntityTypePlayer, true},
		{EntityTypeNPC, true},
		{EntityTypeAnimal, true},
		{EntityTypeStructure, true},
		{EntityTypeTree, true},
		{EntityTypeItem, false},
		{EntityTypeProjectile, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			e := NewEntity(1, tt.typ, vec.Vec2Float{})
			assert.Equal(t, tt.blocks, e.BlocksFreePosFinder())

			e.Active = false
			assert.False(t, e.BlocksFreePosFinder(), "Неактивная сущность клетку не занимает")
		})
	}
}

func TestEntity_WorldPosition(t *testing.T) {
	e := NewEntity(1, EntityTypeTree, vec.Vec2Float{X: 3, Y: 7})
	e.Height = 12
	assert.Equal(t, vec.Vec3Float{X: 3, Y: 12, Z: 7}, e.WorldPosition())
}

func TestParseEntityType(t *testing.T) {
	typ, ok := ParseEntityType(" Tree ")
	require.True(t, ok)
	assert.Equal(t, EntityTypeTree, typ)

	_, ok = ParseEntityType("dragon")
	assert.False(t, ok)
	assert.Equal(t, "unknown", EntityType(99).String())
}

func TestManager_CreateAndRemove(t *testing.T) {
	m := NewManager()

	a := m.Create(EntityTypeAnimal, vec.Vec2Float{X: 1, Y: 1})
	b := m.Create(EntityTypeTree, vec.Vec2Float{X: 2, Y: 2})
	assert.Equal(t, FirstEntityID, a.ID)
	assert.Equal(t, FirstEntityID+1, b.ID)
	assert.Equal(t, 2, m.Count())

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	removed, ok := m.Remove(a.ID)
	require.True(t, ok)
	assert.Same(t, a, removed)
	_, ok = m.Remove(a.ID)
	assert.False(t, ok)
	assert.Equal(t, []uint64{b.ID}, m.IDs())
}

func TestManager_RegisterAdvancesIDs(t *testing.T) {
	m := NewManager()

	require.True(t, m.Register(NewEntity(5000, EntityTypeStructure, vec.Vec2Float{})))
	assert.False(t, m.Register(NewEntity(5000, EntityTypeStructure, vec.Vec2Float{})))

	next := m.Create(EntityTypeItem, vec.Vec2Float{})
	assert.Equal(t, uint64(5001), next.ID)
}
