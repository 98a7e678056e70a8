package navgrid

import "github.com/annel0/navgrid/internal/vec"

// GetRandomPosMatching возвращает свободную клетку, подходящую под ограничения.
//
// Клетки перебираются в заранее перемешанном порядке. Найденный слот меняется
// местами со случайным другим слотом, чтобы следующие вызовы не возвращали раз за разом
// одни и те же ранние клетки. Если подходящих клеток нет, цена: один полный проход.
func (g *Grid) GetRandomPosMatching(p PlacementPredicates) (vec.Vec3Float, bool) {
	g.refreshOccupancy()
	g.stats.RandomQueries++

	n := len(g.shuffled)
	for i := 0; i < n; i++ {
		f := &g.fields[g.shuffled[i]]
		if !g.matches(f, p) {
			continue
		}

		if n > 1 {
			j := g.rng.Intn(n - 1)
			if j >= i {
				j++
			}
			g.shuffled[i], g.shuffled[j] = g.shuffled[j], g.shuffled[i]
		}
		return f.Position, true
	}

	g.stats.RandomMisses++
	return vec.Vec3Float{}, false
}
