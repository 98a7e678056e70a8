package world

import (
	"math"
	"sync"
	"time"

	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
)

// RegionKey координаты региона: floor(позиция / размер региона)
type RegionKey struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RegionKeyFor возвращает ключ региона для мировой позиции
func RegionKeyFor(pos vec.Vec2Float, regionScale float64) RegionKey {
	return RegionKey{
		X: int(math.Floor(pos.X / regionScale)),
		Y: int(math.Floor(pos.Y / regionScale)),
	}
}

// Origin мировые координаты угла региона
func (k RegionKey) Origin(regionScale float64) vec.Vec2Float {
	return vec.Vec2Float{X: float64(k.X) * regionScale, Y: float64(k.Y) * regionScale}
}

// Region активный регион: своя навигационная сетка и сущности в его границах.
// Все обращения к grid идут под mu.
type Region struct {
	key    RegionKey
	origin vec.Vec2Float
	scale  float64
	grid   *navgrid.Grid

	entities map[uint64]*entity.Entity
	tiles    map[uint64]navgrid.GridCoord // Последняя клетка блокирующих сущностей
	movers   map[uint64]*GroundMover

	mu         sync.Mutex
	lastUpdate time.Time
}

func newRegion(key RegionKey, scale float64) *Region {
	return &Region{
		key:        key,
		origin:     key.Origin(scale),
		scale:      scale,
		entities:   make(map[uint64]*entity.Entity),
		tiles:      make(map[uint64]navgrid.GridCoord),
		movers:     make(map[uint64]*GroundMover),
		lastUpdate: time.Now(),
	}
}

// Key возвращает ключ региона
func (r *Region) Key() RegionKey {
	return r.key
}

// ForEachEntity обходит сущности региона. Вызывается сеткой при пересчёте
// занятости, когда r.mu уже захвачен.
func (r *Region) ForEachEntity(fn func(navgrid.Entity)) {
	for _, e := range r.entities {
		fn(e)
	}
}

// track запоминает клетку блокирующей сущности и сообщает, изменилась ли занятость
func (r *Region) track(e *entity.Entity) bool {
	prev, had := r.tiles[e.ID]
	if !e.BlocksFreePosFinder() {
		if had {
			delete(r.tiles, e.ID)
			return true
		}
		return false
	}

	tile := r.grid.WorldToTile(e.PrecisePos)
	r.tiles[e.ID] = tile
	return !had || prev != tile
}

// untrack забывает сущность; true, если она занимала клетку
func (r *Region) untrack(id uint64) bool {
	_, had := r.tiles[id]
	delete(r.tiles, id)
	return had
}

// clampInside удерживает позицию внутри границ региона
func (r *Region) clampInside(pos vec.Vec2Float) vec.Vec2Float {
	maxX := math.Nextafter(r.origin.X+r.scale, r.origin.X)
	maxY := math.Nextafter(r.origin.Y+r.scale, r.origin.Y)
	return vec.Vec2Float{
		X: math.Min(math.Max(pos.X, r.origin.X), maxX),
		Y: math.Min(math.Max(pos.Y, r.origin.Y), maxY),
	}
}
