package navgrid

import "github.com/annel0/navgrid/internal/vec"

// GetPathFoundNextCheckpoint возвращает следующую контрольную точку на пути from -> to
// и флаг clearWay.
//
// clearWay == false означает запасной вариант «идти прямо к цели»: from вне
// региона, путь не найден или не уложился в лимит итераций. Вызывающий
// повторяет запрос по своему таймеру.
func (g *Grid) GetPathFoundNextCheckpoint(from, to vec.Vec2Float) (vec.Vec3Float, bool) {
	g.refreshOccupancy()
	g.stats.CheckpointQueries++

	fromTile := g.WorldToTile(from)
	toTile := g.WorldToTile(to)
	target := g.liftToGround(to)

	fromInBounds := g.IsInBounds(fromTile)
	if fromInBounds && fromTile.ChebyshevTo(toTile) <= 1 {
		g.stats.CheckpointDirect++
		return target, true
	}
	if !fromInBounds {
		g.stats.CheckpointOutOfRegion++
		return target, false
	}

	result := g.FindPath(fromTile, g.ClosestInBounds(toTile))
	if !result.Found() {
		g.stats.CheckpointFallbacks++
		return target, false
	}

	stop := g.firstCornerTile(result.Path)
	if stop == toTile {
		return target, true
	}
	return g.fields[g.index(stop)].Position, true
}

// firstCornerTile идёт по пути со второй клетки, пока клетка не касается
// непроходимой; возвращает первую касающуюся либо цель
func (g *Grid) firstCornerTile(path []GridCoord) GridCoord {
	if len(path) == 1 {
		return path[0]
	}
	i := 1
	for i < len(path)-1 && !g.touchesUnwalkable(path[i]) {
		i++
	}
	return path[i]
}

// touchesUnwalkable проверяет 4-соседей внутри сетки; край сетки препятствием не считается
func (g *Grid) touchesUnwalkable(c GridCoord) bool {
	for _, off := range neighbourOffsets {
		nc := GridCoord{X: c.X + off.X, Y: c.Y + off.Y}
		if g.IsInBounds(nc) && !g.fields[g.index(nc)].IsSlopeWalkable {
			return true
		}
	}
	return false
}
