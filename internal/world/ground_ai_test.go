package world

import (
	"testing"
	"time"

	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMoverGrid(t *testing.T, terrain *stubTerrain) *navgrid.Grid {
	t.Helper()
	g, err := navgrid.New(navgrid.Config{
		Terrain:          terrain,
		Topography:       terrain,
		RegionScale:      16,
		FieldSize:        1,
		WaterLevel:       terrain.water,
		MaxWalkableSlope: 35,
		Seed:             3,
	})
	require.NoError(t, err)
	return g
}

func testMoverConfig() MoverConfig {
	return MoverConfig{
		Speed:       2,
		Requery:     100 * time.Millisecond,
		MaxFailures: 5,
		IdleMin:     500 * time.Millisecond,
		IdleMax:     time.Second,
		ArriveDist:  0.25,
		Targets:     landPredicates(),
	}
}

func seekTo(m *GroundMover, e *entity.Entity, target vec.Vec3Float) {
	m.target = target
	m.hasTarget = true
	m.setState(&seekState{}, e)
}

func TestGroundMover_IdlePicksTarget(t *testing.T) {
	g := newMoverGrid(t, flatTerrain())
	e := entity.NewEntity(1000, entity.EntityTypeAnimal, vec.Vec2Float{X: 1.5, Y: 1.5})
	m := NewGroundMover(e, testMoverConfig())

	_, ok := m.Target()
	assert.False(t, ok)

	assert.Equal(t, MoverEventNone, m.Update(e, g, 2*time.Second))
	target, ok := m.Target()
	require.True(t, ok)
	assert.Equal(t, 10.0, target.Y)
	assert.Equal(t, uint64(1), g.Stats().RandomQueries)
}

func TestGroundMover_ArrivesAroundWall(t *testing.T) {
	terrain := flatTerrain()
	// Проход в стене только в верхнем ряду
	g, err := navgrid.New(navgrid.Config{
		Terrain:          terrain,
		Topography:       &gapWall{column: 8, gapRow: 0},
		RegionScale:      16,
		FieldSize:        1,
		WaterLevel:       terrain.water,
		MaxWalkableSlope: 35,
		Seed:             3,
	})
	require.NoError(t, err)

	e := entity.NewEntity(1000, entity.EntityTypeAnimal, vec.Vec2Float{X: 2.5, Y: 10.5})
	m := NewGroundMover(e, testMoverConfig())
	target := vec.Vec3Float{X: 13.5, Y: 10, Z: 10.5}
	seekTo(m, e, target)

	minY := e.PrecisePos.Y
	var ev MoverEvent
	for i := 0; i < 500 && ev != MoverEventArrived; i++ {
		ev = m.Update(e, g, 100*time.Millisecond)
		require.NotEqual(t, MoverEventAbandoned, ev)
		if e.PrecisePos.Y < minY {
			minY = e.PrecisePos.Y
		}
	}
	assert.Equal(t, MoverEventArrived, ev)
	assert.Equal(t, target.XZ(), e.PrecisePos)
	assert.Equal(t, vec.Vec2Float{}, e.Velocity)
	assert.Less(t, minY, 2.0, "Обход идёт через проход в верхнем ряду")
	assert.Zero(t, g.Stats().CheckpointFallbacks)
}

func TestGroundMover_AbandonsUnreachableTarget(t *testing.T) {
	terrain := flatTerrain()
	terrain.walls = map[int]bool{8: true}
	g := newMoverGrid(t, terrain)

	e := entity.NewEntity(1000, entity.EntityTypeAnimal, vec.Vec2Float{X: 2.5, Y: 2.5})
	m := NewGroundMover(e, testMoverConfig())
	seekTo(m, e, vec.Vec3Float{X: 13.5, Y: 10, Z: 2.5})

	for i := 1; i < 5; i++ {
		require.Equal(t, MoverEventNone, m.Update(e, g, 100*time.Millisecond))
		assert.Equal(t, i, m.Failures())
	}
	assert.Equal(t, MoverEventAbandoned, m.Update(e, g, 100*time.Millisecond))

	_, ok := m.Target()
	assert.False(t, ok)
	assert.Equal(t, uint64(5), g.Stats().CheckpointFallbacks)
}

func TestGroundMover_RequeriesOnTimer(t *testing.T) {
	g := newMoverGrid(t, flatTerrain())
	e := entity.NewEntity(1000, entity.EntityTypeAnimal, vec.Vec2Float{X: 0.5, Y: 0.5})
	m := NewGroundMover(e, testMoverConfig())
	seekTo(m, e, vec.Vec3Float{X: 15.5, Y: 10, Z: 15.5})

	m.Update(e, g, 20*time.Millisecond)
	m.Update(e, g, 20*time.Millisecond)
	m.Update(e, g, 20*time.Millisecond)
	assert.Equal(t, uint64(1), g.Stats().CheckpointQueries, "До истечения таймера повторных запросов нет")

	m.Update(e, g, 60*time.Millisecond)
	assert.Equal(t, uint64(2), g.Stats().CheckpointQueries)
	assert.Equal(t, 0, m.Failures())
}

func TestCalculateDirection(t *testing.T) {
	assert.Equal(t, 1, calculateDirection(vec.Vec2Float{X: 1, Y: 0.2}))
	assert.Equal(t, 3, calculateDirection(vec.Vec2Float{X: -1, Y: 0.2}))
	assert.Equal(t, 0, calculateDirection(vec.Vec2Float{X: 0.1, Y: 1}))
	assert.Equal(t, 2, calculateDirection(vec.Vec2Float{X: 0.1, Y: -1}))
}

// gapWall непроходимый столбец с одним проходом
type gapWall struct {
	column int
	gapRow int
}

func (w *gapWall) Slope(pos vec.Vec2Float) float64 {
	if int(pos.X) == w.column && int(pos.Y) != w.gapRow {
		return 80
	}
	return 0
}
