package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_Floor(t *testing.T) {
	assert.Equal(t, Vec2{X: 0, Y: 0}, Vec2Float{X: 0.5, Y: 1.99}.Floor(2))
	assert.Equal(t, Vec2{X: -1, Y: 2}, Vec2Float{X: -0.1, Y: 4}.Floor(2), "Отрицательные координаты округляются вниз")
}

func TestVec2_ChebyshevTo(t *testing.T) {
	a := Vec2{X: 1, Y: 1}
	assert.Equal(t, 0, a.ChebyshevTo(a))
	assert.Equal(t, 1, a.ChebyshevTo(Vec2{X: 2, Y: 2}))
	assert.Equal(t, 3, a.ChebyshevTo(Vec2{X: -2, Y: 0}))
}

func TestVec2Float_WithHeight(t *testing.T) {
	v := Vec2Float{X: 3, Y: 4}.WithHeight(7)
	assert.Equal(t, Vec3Float{X: 3, Y: 7, Z: 4}, v)
	assert.Equal(t, Vec2Float{X: 3, Y: 4}, v.XZ())
}
