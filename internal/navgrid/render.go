package navgrid

import "strings"

// Render рисует сетку символами, строка y=0 сверху:
// '#' крутой склон, '~' под водой, 'x' занято, '.' свободно, '*' клетка пути.
func (g *Grid) Render(path []GridCoord) string {
	g.refreshOccupancy()

	onPath := make(map[int]struct{}, len(path))
	for _, c := range path {
		if g.IsInBounds(c) {
			onPath[g.index(c)] = struct{}{}
		}
	}

	var sb strings.Builder
	sb.Grow(g.size * (g.size + 1))
	for y := 0; y < g.size; y++ {
		for x := 0; x < g.size; x++ {
			i := y*g.size + x
			f := &g.fields[i]
			switch {
			case hasIndex(onPath, i):
				sb.WriteByte('*')
			case !f.IsSlopeWalkable:
				sb.WriteByte('#')
			case f.IsUsed:
				sb.WriteByte('x')
			case f.Height <= g.waterLevel:
				sb.WriteByte('~')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hasIndex(set map[int]struct{}, i int) bool {
	_, ok := set[i]
	return ok
}
