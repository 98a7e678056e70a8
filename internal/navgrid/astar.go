package navgrid

import (
	"math"

	"github.com/annel0/navgrid/internal/logging"
)

// SearchOutcome итог одного поиска пути
type SearchOutcome uint8

const (
	OutcomeFound SearchOutcome = iota
	OutcomeExhausted
	OutcomeIterationLimit
	OutcomeDestinationBlocked
	OutcomeOutOfBounds
)

func (o SearchOutcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeIterationLimit:
		return "iteration_limit"
	case OutcomeDestinationBlocked:
		return "destination_blocked"
	case OutcomeOutOfBounds:
		return "out_of_bounds"
	default:
		return "unknown"
	}
}

// SearchResult результат FindPath
type SearchResult struct {
	Outcome    SearchOutcome
	Path       []GridCoord // От старта до цели включительно; только для OutcomeFound
	Iterations int         // Количество извлечений из открытого множества
}

// Found сообщает, найден ли путь
func (r SearchResult) Found() bool {
	return r.Outcome == OutcomeFound
}

// neighbourOffsets 4-связное соседство
var neighbourOffsets = [4]GridCoord{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// FindPath ищет 4-связный путь между клетками.
//
// Шаг стоит 1, эвристика: квадрат квадрата расстояния до цели. Она
// недопустима: поиск быстрее уходит по прямой к цели, кратчайший путь не
// гарантируется. Поиск прерывается после maxIterations извлечений.
func (g *Grid) FindPath(from, to GridCoord) SearchResult {
	g.stats.Searches++

	if !g.IsInBounds(from) || !g.IsInBounds(to) {
		g.stats.SearchesOutOfBounds++
		return SearchResult{Outcome: OutcomeOutOfBounds}
	}

	end := g.index(to)
	if !g.fields[end].IsSlopeWalkable {
		g.stats.SearchesDestinationBlocked++
		return SearchResult{Outcome: OutcomeDestinationBlocked}
	}

	g.advanceEpoch()
	g.open.reset()

	start := g.index(from)
	s := &g.fields[start]
	s.scoreF, s.scoreG, s.scoreH = 0, 0, 0
	s.cameFrom = -1
	s.goesTo = -1
	s.openSetEpoch = g.currentEpoch
	g.open.push(start)

	iterations := 0
	for g.open.Len() > 0 {
		if iterations >= g.maxIterations {
			g.stats.SearchesIterationLimit++
			g.stats.NodesExpanded += uint64(iterations)
			logging.Trace("navgrid: поиск %v -> %v прерван после %d итераций", from, to, iterations)
			return SearchResult{Outcome: OutcomeIterationLimit, Iterations: iterations}
		}
		iterations++

		current := g.open.popMin()
		if current == end {
			g.stats.SearchesFound++
			g.stats.NodesExpanded += uint64(iterations)
			return SearchResult{
				Outcome:    OutcomeFound,
				Path:       g.reconstruct(start, end),
				Iterations: iterations,
			}
		}

		f := &g.fields[current]
		f.openSetEpoch = 0
		f.closedSetEpoch = g.currentEpoch
		g.expand(current, end)
	}

	g.stats.SearchesExhausted++
	g.stats.NodesExpanded += uint64(iterations)
	return SearchResult{Outcome: OutcomeExhausted, Iterations: iterations}
}

// expand релаксирует проходимых, ещё не закрытых соседей клетки
func (g *Grid) expand(current, end int) {
	cur := g.coord(current)
	tentativeG := g.fields[current].scoreG + 1

	for _, off := range neighbourOffsets {
		nc := GridCoord{X: cur.X + off.X, Y: cur.Y + off.Y}
		if !g.IsInBounds(nc) {
			continue
		}
		ni := g.index(nc)
		n := &g.fields[ni]
		if !n.IsSlopeWalkable || n.closedSetEpoch == g.currentEpoch {
			continue
		}

		if n.openSetEpoch != g.currentEpoch {
			n.scoreG = tentativeG
			n.scoreH = g.heuristic(nc, end)
			n.scoreF = n.scoreG + n.scoreH
			n.cameFrom = current
			n.goesTo = -1
			n.openSetEpoch = g.currentEpoch
			g.open.push(ni)
			continue
		}

		if tentativeG < n.scoreG {
			n.scoreG = tentativeG
			n.scoreF = n.scoreG + n.scoreH
			n.cameFrom = current
			g.open.fix(ni)
		}
	}
}

// heuristic (dx²+dy²)², расстояние в четвёртой степени
func (g *Grid) heuristic(c GridCoord, end int) float64 {
	e := g.coord(end)
	dx := float64(c.X - e.X)
	dy := float64(c.Y - e.Y)
	d2 := dx*dx + dy*dy
	return d2 * d2
}

// advanceEpoch начинает новый поиск. При переполнении счётчика все отметки
// сбрасываются в 0, а счётчик начинается с 1 (0 означает «не посещалась»).
func (g *Grid) advanceEpoch() {
	if g.currentEpoch == math.MaxInt64 {
		for i := range g.fields {
			g.fields[i].openSetEpoch = 0
			g.fields[i].closedSetEpoch = 0
		}
		g.currentEpoch = 1
		g.stats.EpochWraps++
		return
	}
	g.currentEpoch++
}

// reconstruct восстанавливает путь по cameFrom и заполняет goesTo вдоль него
func (g *Grid) reconstruct(start, end int) []GridCoord {
	g.fields[end].goesTo = -1

	length := 1
	for i := end; i != start; {
		prev := g.fields[i].cameFrom
		if debugAsserts && prev < 0 {
			panic("navgrid: broken cameFrom chain")
		}
		g.fields[prev].goesTo = i
		i = prev
		length++
	}

	path := make([]GridCoord, 0, length)
	for i := start; i >= 0; i = g.fields[i].goesTo {
		path = append(path, g.coord(i))
		if i == end {
			break
		}
	}
	return path
}
