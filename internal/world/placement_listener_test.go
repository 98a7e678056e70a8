package world

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/navgrid/internal/eventbus"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placementEnvelope(t *testing.T, eventType string, ev PlacementEvent) *eventbus.Envelope {
	t.Helper()
	env, err := NewPlacementEnvelope("test", eventType, ev)
	require.NoError(t, err)
	return env
}

func TestPlacementListener_SpawnMoveDespawn(t *testing.T) {
	key := RegionKey{0, 0}
	rm := newTestManager(t, flatTerrain(), key)
	pl := NewPlacementListener(rm)
	ctx := context.Background()

	pl.Handle(ctx, placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityID: 7000, EntityType: "structure", X: 3.5, Y: 3.5,
	}))
	e, ok := rm.GetEntity(7000)
	require.True(t, ok)
	assert.Equal(t, 10.0, e.Height)

	pl.Handle(ctx, placementEnvelope(t, EventPlacementMove, PlacementEvent{EntityID: 7000, X: 9.5, Y: 1.5}))
	assert.Equal(t, vec.Vec2Float{X: 9.5, Y: 1.5}, e.PrecisePos)

	settle(t, rm, key)
	assert.True(t, fieldUsed(t, rm, key, vec.Vec2Float{X: 9.5, Y: 1.5}))

	pl.Handle(ctx, placementEnvelope(t, EventPlacementDespawn, PlacementEvent{EntityID: 7000}))
	_, ok = rm.GetEntity(7000)
	assert.False(t, ok)
}

func TestPlacementListener_RandomSpawnAndBadEvents(t *testing.T) {
	key := RegionKey{0, 0}
	rm := newTestManager(t, flatTerrain(), key)
	pl := NewPlacementListener(rm)

	require.NoError(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "tree", Random: true, Region: key,
	})))
	require.NoError(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "animal", X: 1.5, Y: 1.5,
	})))
	assert.Equal(t, 2, rm.Stats().Entities)
	assert.Equal(t, 1, rm.Stats().Movers)

	assert.Error(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{EntityType: "dragon"})))
	assert.Error(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "tree", Random: true, Ground: []string{"lava"}, Region: key,
	})))
	assert.ErrorIs(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "tree", Random: true, Ground: []string{"sand"}, Region: key,
	})), ErrNoFreePosition)
	assert.ErrorIs(t, pl.apply(placementEnvelope(t, EventPlacementDespawn, PlacementEvent{EntityID: 1})), ErrUnknownEntity)
	assert.ErrorIs(t, pl.apply(placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "tree", Random: true, Region: RegionKey{5, 5},
	})), ErrRegionNotActive)

	bad := eventbus.NewEnvelope("test", EventPlacementMove, []byte("{"))
	assert.Error(t, pl.apply(bad))
	assert.NoError(t, pl.apply(eventbus.NewEnvelope("test", "ChatEvent", nil)), "Чужие события игнорируются")
}

func TestPlacementListener_ThroughMemoryBus(t *testing.T) {
	key := RegionKey{0, 0}
	rm := newTestManager(t, flatTerrain(), key)
	bus := eventbus.NewMemoryBus(16)

	pl := NewPlacementListener(rm)
	require.NoError(t, pl.Start(context.Background(), bus))
	defer pl.Stop()

	require.NoError(t, bus.Publish(context.Background(), placementEnvelope(t, EventPlacementSpawn, PlacementEvent{
		EntityType: "npc", Random: true, Region: key,
	})))

	assert.Eventually(t, func() bool { return rm.Stats().Entities == 1 }, time.Second, 5*time.Millisecond)
}
