package terrain

import (
	"math"

	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
)

// Пороги нормализованной высоты
const (
	MountainStart = 0.80 // Выше - скалы
	SnowStart     = 0.90 // Выше - снег
	BeachBand     = 1.5  // Полоса песка над уровнем воды, мировые единицы
	CliffSlope    = 40.0 // Круче - голая скала, градусы
	slopeStep     = 0.5  // Шаг конечных разностей для уклона
)

// Generator процедурный ландшафт: высота, уклон и тип грунта в любой точке мира
type Generator struct {
	heightNoise *NoiseField
	biomeNoise  *NoiseField
	heightScale float64
	waterLevel  float64
}

var (
	_ navgrid.TerrainSampler    = (*Generator)(nil)
	_ navgrid.TopographySampler = (*Generator)(nil)
)

// NewGenerator создаёт генератор ландшафта
func NewGenerator(cfg config.TerrainConfig) *Generator {
	return &Generator{
		heightNoise: NewNoiseField(cfg.Seed, cfg.NoiseScale, cfg.Octaves),
		biomeNoise:  NewNoiseField(cfg.Seed+42, cfg.BiomeScale, cfg.Octaves),
		heightScale: cfg.HeightScale,
		waterLevel:  cfg.WaterLevel,
	}
}

// WaterLevel возвращает уровень воды
func (g *Generator) WaterLevel() float64 {
	return g.waterLevel
}

// Height высота поверхности в точке
func (g *Generator) Height(pos vec.Vec2Float) float64 {
	return g.heightNoise.At(pos.X, pos.Y) * g.heightScale
}

// Slope уклон поверхности в градусах по центральным разностям
func (g *Generator) Slope(pos vec.Vec2Float) float64 {
	dx := (g.Height(vec.Vec2Float{X: pos.X + slopeStep, Y: pos.Y}) -
		g.Height(vec.Vec2Float{X: pos.X - slopeStep, Y: pos.Y})) / (2 * slopeStep)
	dz := (g.Height(vec.Vec2Float{X: pos.X, Y: pos.Y + slopeStep}) -
		g.Height(vec.Vec2Float{X: pos.X, Y: pos.Y - slopeStep})) / (2 * slopeStep)

	return math.Atan(math.Hypot(dx, dz)) * 180 / math.Pi
}

// GroundCategory тип грунта в точке: вода, пляж, скалы по высоте и уклону, иначе по биому
func (g *Generator) GroundCategory(pos vec.Vec2Float) navgrid.GroundCategory {
	height := g.Height(pos)

	switch {
	case height <= g.waterLevel:
		return navgrid.GroundWater
	case height <= g.waterLevel+BeachBand:
		return navgrid.GroundSand
	}

	normalized := height / g.heightScale
	switch {
	case normalized >= SnowStart:
		return navgrid.GroundSnow
	case normalized >= MountainStart || g.Slope(pos) > CliffSlope:
		return navgrid.GroundRock
	}

	biome := g.biomeNoise.At(pos.X, pos.Y)
	switch {
	case biome < 0.35:
		return navgrid.GroundSand // Пустыня
	case biome > 0.65:
		return navgrid.GroundDirt // Лесная подстилка
	default:
		return navgrid.GroundGrass
	}
}
