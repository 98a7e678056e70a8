package terrain

import (
	"testing"

	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePoints() []vec.Vec2Float {
	points := make([]vec.Vec2Float, 0, 400)
	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			points = append(points, vec.Vec2Float{X: float64(x)*7.3 - 40, Y: float64(y)*5.1 + 3})
		}
	}
	return points
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := config.Default().Terrain
	a := NewGenerator(cfg)
	b := NewGenerator(cfg)

	for _, p := range samplePoints() {
		assert.Equal(t, a.Height(p), b.Height(p))
		assert.Equal(t, a.Slope(p), b.Slope(p))
		assert.Equal(t, a.GroundCategory(p), b.GroundCategory(p))
	}
}

func TestGenerator_Ranges(t *testing.T) {
	cfg := config.Default().Terrain
	gen := NewGenerator(cfg)

	for _, p := range samplePoints() {
		h := gen.Height(p)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, cfg.HeightScale)

		s := gen.Slope(p)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.Less(t, s, 90.0)

		if h <= gen.WaterLevel() {
			assert.Equal(t, navgrid.GroundWater, gen.GroundCategory(p), "Ниже уровня воды всегда вода")
		} else {
			assert.NotEqual(t, navgrid.GroundWater, gen.GroundCategory(p))
		}
	}
}

func TestGenerator_FlatWhenNoiseScaleZero(t *testing.T) {
	cfg := config.Default().Terrain
	cfg.NoiseScale = 0
	gen := NewGenerator(cfg)

	h0 := gen.Height(vec.Vec2Float{})
	for _, p := range samplePoints() {
		assert.Equal(t, h0, gen.Height(p))
		assert.Equal(t, 0.0, gen.Slope(p))
	}
}

func TestGenerator_BuildsNavGrid(t *testing.T) {
	cfg := config.Default()
	gen := NewGenerator(cfg.Terrain)

	g, err := navgrid.New(navgrid.Config{
		Terrain:          gen,
		Topography:       gen,
		RegionScale:      32,
		FieldSize:        cfg.NavGrid.FieldSize,
		WaterLevel:       gen.WaterLevel(),
		MaxWalkableSlope: cfg.NavGrid.MaxWalkableSlope,
	})
	require.NoError(t, err)
	assert.Equal(t, 16, g.Size())

	pos, ok := g.GetRandomPosMatching(navgrid.PlacementPredicates{Slope: navgrid.AnySlope})
	require.True(t, ok)
	assert.InDelta(t, gen.Height(pos.XZ()), pos.Y, 1e-9, "Высота клетки берётся из ландшафта")
}
