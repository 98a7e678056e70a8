package navgrid

import "fmt"

// WaterLevelMode ограничение по уровню воды
type WaterLevelMode uint8

const (
	WaterEither WaterLevelMode = iota
	WaterAbove
	WaterBelow
)

func (m WaterLevelMode) String() string {
	switch m {
	case WaterAbove:
		return "above"
	case WaterBelow:
		return "below"
	default:
		return "either"
	}
}

// SlopeRange включительный диапазон уклона в градусах
type SlopeRange struct {
	Min, Max float64
}

// AnySlope диапазон, пропускающий любой уклон
var AnySlope = SlopeRange{Min: 0, Max: 90}

// Contains проверяет уклон на попадание в диапазон
func (r SlopeRange) Contains(slope float64) bool {
	return slope >= r.Min && slope <= r.Max
}

// GroundMask набор разрешённых категорий грунта; нулевое значение разрешает любую
type GroundMask uint32

// Grounds собирает маску из категорий
func Grounds(categories ...GroundCategory) GroundMask {
	var m GroundMask
	for _, c := range categories {
		m |= 1 << c
	}
	return m
}

// ParseGrounds собирает маску из названий категорий; пустой список разрешает любую
func ParseGrounds(names []string) (GroundMask, error) {
	var m GroundMask
	for _, name := range names {
		c, ok := ParseGroundCategory(name)
		if !ok {
			return 0, fmt.Errorf("navgrid: unknown ground category %q", name)
		}
		m |= Grounds(c)
	}
	return m, nil
}

// Allows проверяет категорию
func (m GroundMask) Allows(c GroundCategory) bool {
	return m == 0 || m&(1<<c) != 0
}

// PlacementPredicates неизменяемый набор ограничений на размещение
type PlacementPredicates struct {
	Water  WaterLevelMode
	Slope  SlopeRange
	Ground GroundMask
}

// matches проверяет клетку. Тип грунта запрашивается у ландшафта только
// после остальных проверок: он нужен редко и не кэшируется.
func (g *Grid) matches(f *Field, p PlacementPredicates) bool {
	if f.IsUsed {
		return false
	}
	switch p.Water {
	case WaterAbove:
		if f.Height <= g.waterLevel {
			return false
		}
	case WaterBelow:
		if f.Height > g.waterLevel {
			return false
		}
	}
	if !p.Slope.Contains(f.Slope) {
		return false
	}
	if p.Ground != 0 && !p.Ground.Allows(g.terrain.GroundCategory(f.Position.XZ())) {
		return false
	}
	return true
}
