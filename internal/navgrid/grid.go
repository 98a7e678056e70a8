// Package navgrid ищет свободные позиции и контрольные точки пути внутри одного региона.
//
// Grid не потокобезопасен: им владеет один регион, и все вызовы должны
// сериализоваться владельцем.
package navgrid

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/vec"
)

const (
	DefaultMaxSearchIterations = 5000
	DefaultMaxWalkableSlope    = 35.0
)

var (
	// ErrEmptyRegion регион меньше одной клетки
	ErrEmptyRegion = errors.New("navgrid: region has zero fields")
	// ErrMissingSampler не передан сэмплер ландшафта или рельефа
	ErrMissingSampler = errors.New("navgrid: terrain or topography sampler is missing")
)

// Config параметры создания сетки
type Config struct {
	Terrain             TerrainSampler
	Topography          TopographySampler
	Entities            EntitySource  // Может быть nil: тогда занятость задаётся только UseFieldAt
	Origin              vec.Vec2Float // Мировые координаты угла региона
	RegionScale         float64
	FieldSize           float64
	WaterLevel          float64
	MaxWalkableSlope    float64
	MaxSearchIterations int
	Seed                int64
}

// Grid сетка клеток одного региона
type Grid struct {
	size          int
	fieldSize     float64
	origin        vec.Vec2Float
	waterLevel    float64
	maxIterations int

	fields       []Field
	currentEpoch int64
	open         openSet
	shuffled     []int
	rng          *rand.Rand
	dirty        bool

	terrain    TerrainSampler
	topography TopographySampler
	entities   EntitySource

	stats Stats
}

// New создаёт сетку и один раз сэмплирует высоту и уклон каждой клетки
func New(cfg Config) (*Grid, error) {
	if cfg.Terrain == nil || cfg.Topography == nil {
		return nil, ErrMissingSampler
	}
	if cfg.FieldSize <= 0 {
		return nil, fmt.Errorf("%w: field size %v", ErrEmptyRegion, cfg.FieldSize)
	}
	size := int(cfg.RegionScale / cfg.FieldSize)
	if size <= 0 {
		return nil, fmt.Errorf("%w: region scale %v / field size %v", ErrEmptyRegion, cfg.RegionScale, cfg.FieldSize)
	}
	if cfg.MaxSearchIterations <= 0 {
		cfg.MaxSearchIterations = DefaultMaxSearchIterations
	}
	if cfg.MaxWalkableSlope <= 0 {
		cfg.MaxWalkableSlope = DefaultMaxWalkableSlope
	}

	g := &Grid{
		size:          size,
		fieldSize:     cfg.FieldSize,
		origin:        cfg.Origin,
		waterLevel:    cfg.WaterLevel,
		maxIterations: cfg.MaxSearchIterations,
		fields:        make([]Field, size*size),
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		dirty:         true,
		terrain:       cfg.Terrain,
		topography:    cfg.Topography,
		entities:      cfg.Entities,
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			center := g.TileToWorldCenter(GridCoord{X: x, Y: y})
			height := cfg.Terrain.Height(center)
			slope := cfg.Topography.Slope(center)

			g.fields[y*size+x] = Field{
				Height:          height,
				Slope:           slope,
				Position:        center.WithHeight(height),
				IsSlopeWalkable: slope <= cfg.MaxWalkableSlope,
				cameFrom:        -1,
				goesTo:          -1,
				heapIndex:       -1,
			}
		}
	}

	g.shuffled = g.rng.Perm(len(g.fields))
	g.open = openSet{fields: g.fields, items: make([]int, 0, 64)}

	logging.Debug("navgrid: сетка %dx%d (клетка %.2f) создана в %v", size, size, cfg.FieldSize, cfg.Origin)
	return g, nil
}

// Size возвращает сторону сетки в клетках
func (g *Grid) Size() int {
	return g.size
}

// FieldSize возвращает размер клетки в мировых единицах
func (g *Grid) FieldSize() float64 {
	return g.fieldSize
}

// WaterLevel возвращает уровень воды, с которым сравниваются высоты клеток
func (g *Grid) WaterLevel() float64 {
	return g.waterLevel
}

// WorldToTile переводит мировую позицию в клетку. Результат может быть вне сетки.
func (g *Grid) WorldToTile(pos vec.Vec2Float) GridCoord {
	c := pos.Sub(g.origin).Floor(g.fieldSize)
	return GridCoord{X: c.X, Y: c.Y}
}

// TileToWorldCenter возвращает мировую позицию центра клетки
func (g *Grid) TileToWorldCenter(c GridCoord) vec.Vec2Float {
	return vec.Vec2Float{
		X: g.origin.X + (float64(c.X)+0.5)*g.fieldSize,
		Y: g.origin.Y + (float64(c.Y)+0.5)*g.fieldSize,
	}
}

// IsInBounds проверяет, что клетка принадлежит сетке
func (g *Grid) IsInBounds(c GridCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.size && c.Y < g.size
}

// ClosestInBounds прижимает каждую ось к [0, size-1]
func (g *Grid) ClosestInBounds(c GridCoord) GridCoord {
	return GridCoord{X: clamp(c.X, 0, g.size-1), Y: clamp(c.Y, 0, g.size-1)}
}

// Field возвращает копию клетки
func (g *Grid) Field(c GridCoord) (Field, bool) {
	if !g.IsInBounds(c) {
		return Field{}, false
	}
	return g.fields[g.index(c)], true
}

// index переводит координаты в индекс плоского массива (y*size+x)
func (g *Grid) index(c GridCoord) int {
	if debugAsserts && !g.IsInBounds(c) {
		panic(fmt.Sprintf("navgrid: index out of bounds %v (size %d)", c, g.size))
	}
	return c.Y*g.size + c.X
}

func (g *Grid) coord(i int) GridCoord {
	return GridCoord{X: i % g.size, Y: i / g.size}
}

// liftToGround поднимает точку на высоту ландшафта
func (g *Grid) liftToGround(pos vec.Vec2Float) vec.Vec3Float {
	if c := g.WorldToTile(pos); g.IsInBounds(c) {
		return pos.WithHeight(g.fields[g.index(c)].Height)
	}
	return pos.WithHeight(g.terrain.Height(pos))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
