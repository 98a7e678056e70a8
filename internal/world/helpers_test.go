package world

import (
	"math"
	"testing"

	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/require"
)

// stubTerrain ровная суша; столбцы из walls непроходимы по уклону
type stubTerrain struct {
	height float64
	water  float64
	walls  map[int]bool
}

func (s *stubTerrain) Height(pos vec.Vec2Float) float64 { return s.height }

func (s *stubTerrain) Slope(pos vec.Vec2Float) float64 {
	if s.walls[int(math.Floor(pos.X))] {
		return 80
	}
	return 0
}

func (s *stubTerrain) GroundCategory(pos vec.Vec2Float) navgrid.GroundCategory {
	return navgrid.GroundGrass
}

func (s *stubTerrain) WaterLevel() float64 { return s.water }

func testNavConfig() config.NavGridConfig {
	return config.NavGridConfig{
		FieldSize:           1,
		RegionScale:         16,
		MaxWalkableSlope:    35,
		MaxSearchIterations: 5000,
		ShuffleSeed:         7,
	}
}

func testWorldConfig() config.WorldConfig {
	return config.WorldConfig{
		Workers:       2,
		TickMs:        10,
		AIRequeryMs:   100,
		AIMaxFailures: 5,
	}
}

func newTestManager(t *testing.T, terrain Terrain, keys ...RegionKey) *RegionManager {
	t.Helper()
	rm := NewRegionManager(terrain, testNavConfig(), testWorldConfig())
	for _, key := range keys {
		require.NoError(t, rm.ActivateRegion(key))
	}
	return rm
}

func flatTerrain() *stubTerrain {
	return &stubTerrain{height: 10, water: 5}
}

func landPredicates() navgrid.PlacementPredicates {
	return navgrid.PlacementPredicates{Water: navgrid.WaterAbove, Slope: navgrid.SlopeRange{Min: 0, Max: 35}}
}

// fieldUsed читает занятость клетки напрямую, не вызывая пересчёт
func fieldUsed(t *testing.T, rm *RegionManager, key RegionKey, pos vec.Vec2Float) bool {
	t.Helper()
	var used bool
	require.NoError(t, rm.WithGrid(key, func(g *navgrid.Grid) {
		f, ok := g.Field(g.WorldToTile(pos))
		require.True(t, ok)
		used = f.IsUsed
	}))
	return used
}

func isDirty(t *testing.T, rm *RegionManager, key RegionKey) bool {
	t.Helper()
	var dirty bool
	require.NoError(t, rm.WithGrid(key, func(g *navgrid.Grid) {
		dirty = g.IsDirty()
	}))
	return dirty
}

// settle пересчитывает занятость региона
func settle(t *testing.T, rm *RegionManager, key RegionKey) {
	t.Helper()
	require.NoError(t, rm.WithGrid(key, func(g *navgrid.Grid) {
		g.RecalculateUsedFields()
	}))
}
