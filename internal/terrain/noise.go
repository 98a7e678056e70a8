package terrain

import (
	"github.com/aquilax/go-perlin"
)

// NoiseField двумерный шум Перлина, отображённый в [0, 1]
type NoiseField struct {
	noise *perlin.Perlin
	scale float64
}

// NewNoiseField создаёт генератор шума с указанным сидом и масштабом координат
func NewNoiseField(seed int64, scale float64, octaves int) *NoiseField {
	alpha := 2.0 // Сглаживание шума
	beta := 2.0  // Частота шума
	if octaves <= 0 {
		octaves = 3
	}
	return &NoiseField{
		noise: perlin.NewPerlin(alpha, beta, int32(octaves), seed),
		scale: scale,
	}
}

// At возвращает значение шума для мировых координат (от 0 до 1)
func (n *NoiseField) At(x, y float64) float64 {
	v := (n.noise.Noise2D(x*n.scale, y*n.scale) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
