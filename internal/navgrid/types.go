package navgrid

import (
	"strings"

	"github.com/annel0/navgrid/internal/vec"
)

// GridCoord координаты клетки внутри региона (0 ≤ X,Y < size)
type GridCoord struct {
	X, Y int
}

// ChebyshevTo возвращает max(|dx|, |dy|)
func (c GridCoord) ChebyshevTo(other GridCoord) int {
	return vec.Vec2{X: c.X, Y: c.Y}.ChebyshevTo(vec.Vec2{X: other.X, Y: other.Y})
}

// GroundCategory тип грунта, который определяет ландшафт
type GroundCategory uint8

const (
	GroundUnknown GroundCategory = iota
	GroundGrass
	GroundDirt
	GroundSand
	GroundRock
	GroundSnow
	GroundWater
)

var groundNames = [...]string{
	GroundUnknown: "unknown",
	GroundGrass:   "grass",
	GroundDirt:    "dirt",
	GroundSand:    "sand",
	GroundRock:    "rock",
	GroundSnow:    "snow",
	GroundWater:   "water",
}

func (g GroundCategory) String() string {
	if int(g) < len(groundNames) {
		return groundNames[g]
	}
	return "unknown"
}

// ParseGroundCategory разбирает название категории грунта
func ParseGroundCategory(s string) (GroundCategory, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range groundNames {
		if name == s && i != int(GroundUnknown) {
			return GroundCategory(i), true
		}
	}
	return GroundUnknown, false
}

// TerrainSampler предоставляет высоту и тип грунта в точке мира
type TerrainSampler interface {
	Height(pos vec.Vec2Float) float64
	GroundCategory(pos vec.Vec2Float) GroundCategory
}

// TopographySampler предоставляет уклон поверхности в градусах
type TopographySampler interface {
	Slope(pos vec.Vec2Float) float64
}

// Entity сущность мира, которая может занимать клетку
type Entity interface {
	BlocksFreePosFinder() bool
	WorldPosition() vec.Vec3Float
}

// EntitySource перебирает сущности, относящиеся к региону
type EntitySource interface {
	ForEachEntity(fn func(Entity))
}

// Field одна клетка сетки
type Field struct {
	Height          float64
	Slope           float64
	Position        vec.Vec3Float // Центр клетки в мировых координатах (x, height, z)
	IsSlopeWalkable bool          // Вычисляется один раз при создании
	IsUsed          bool          // Занята сущностью; перезаписывается при пересчёте

	// Рабочее состояние A*, действительно только после последнего поиска
	scoreF, scoreG, scoreH float64
	cameFrom               int
	goesTo                 int
	openSetEpoch           int64
	closedSetEpoch         int64
	heapIndex              int
}
