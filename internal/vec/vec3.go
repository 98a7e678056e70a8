package vec

// Vec3Float представляет трехмерный вектор с плавающими координатами.
// Y: высота, X/Z: горизонтальная плоскость.
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// XZ проецирует точку на горизонтальную плоскость
func (v Vec3Float) XZ() Vec2Float {
	return Vec2Float{X: v.X, Y: v.Z}
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}
