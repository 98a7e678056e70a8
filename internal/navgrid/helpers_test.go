package navgrid

import (
	"math"
	"testing"

	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/require"
)

const testWaterLevel = 5.0

// stubTerrain ландшафт, заданный по клеткам единичного размера
type stubTerrain struct {
	heights     map[GridCoord]float64
	slopes      map[GridCoord]float64
	ground      map[GridCoord]GroundCategory
	groundCalls int
}

func newStubTerrain() *stubTerrain {
	return &stubTerrain{
		heights: make(map[GridCoord]float64),
		slopes:  make(map[GridCoord]float64),
		ground:  make(map[GridCoord]GroundCategory),
	}
}

func (s *stubTerrain) tile(pos vec.Vec2Float) GridCoord {
	return GridCoord{X: int(math.Floor(pos.X)), Y: int(math.Floor(pos.Y))}
}

func (s *stubTerrain) Height(pos vec.Vec2Float) float64 {
	if h, ok := s.heights[s.tile(pos)]; ok {
		return h
	}
	return 10
}

func (s *stubTerrain) Slope(pos vec.Vec2Float) float64 {
	return s.slopes[s.tile(pos)]
}

func (s *stubTerrain) GroundCategory(pos vec.Vec2Float) GroundCategory {
	s.groundCalls++
	if c, ok := s.ground[s.tile(pos)]; ok {
		return c
	}
	return GroundGrass
}

// block делает клетку непроходимой (уклон 60°)
func (s *stubTerrain) block(cells ...GridCoord) *stubTerrain {
	for _, c := range cells {
		s.slopes[c] = 60
	}
	return s
}

// wall возвращает вертикальную стену x=col, кроме клеток gaps
func wall(col, size int, gaps ...int) []GridCoord {
	cells := make([]GridCoord, 0, size)
	for y := 0; y < size; y++ {
		skip := false
		for _, g := range gaps {
			if g == y {
				skip = true
			}
		}
		if !skip {
			cells = append(cells, GridCoord{X: col, Y: y})
		}
	}
	return cells
}

type stubEntity struct {
	pos    vec.Vec3Float
	blocks bool
}

func (e stubEntity) BlocksFreePosFinder() bool     { return e.blocks }
func (e stubEntity) WorldPosition() vec.Vec3Float { return e.pos }

type stubWorld struct {
	entities []stubEntity
}

func (w *stubWorld) ForEachEntity(fn func(Entity)) {
	for _, e := range w.entities {
		fn(e)
	}
}

func newTestGrid(t *testing.T, size int, terrain *stubTerrain, world EntitySource) *Grid {
	t.Helper()
	g, err := New(Config{
		Terrain:          terrain,
		Topography:       terrain,
		Entities:         world,
		RegionScale:      float64(size),
		FieldSize:        1,
		WaterLevel:       testWaterLevel,
		MaxWalkableSlope: 35,
		Seed:             1,
	})
	require.NoError(t, err)
	require.Equal(t, size, g.Size())
	return g
}

func center(x, y int) vec.Vec2Float {
	return vec.Vec2Float{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func requireContiguous(t *testing.T, g *Grid, path []GridCoord) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		d := abs(path[i].X-path[i-1].X) + abs(path[i].Y-path[i-1].Y)
		require.Equal(t, 1, d, "Шаги пути должны быть 4-связными: %v -> %v", path[i-1], path[i])
	}
	for _, c := range path {
		f, ok := g.Field(c)
		require.True(t, ok)
		require.True(t, f.IsSlopeWalkable, "Путь не должен проходить через крутой склон %v", c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
