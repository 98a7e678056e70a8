package navgrid

import "github.com/annel0/navgrid/internal/vec"

// SetDirty помечает занятость устаревшей; пересчёт произойдёт при следующем запросе
func (g *Grid) SetDirty() {
	g.dirty = true
}

// IsDirty сообщает, ожидает ли занятость пересчёта
func (g *Grid) IsDirty() bool {
	return g.dirty
}

// UseFieldAt сразу помечает клетку в pos занятой (подтверждение размещения без пересчёта)
func (g *Grid) UseFieldAt(pos vec.Vec2Float) {
	c := g.WorldToTile(pos)
	if !g.IsInBounds(c) {
		return
	}
	g.fields[g.index(c)].IsUsed = true
}

// RecalculateUsedFields сбрасывает занятость и заново отмечает клетки блокирующих сущностей
func (g *Grid) RecalculateUsedFields() {
	for i := range g.fields {
		g.fields[i].IsUsed = false
	}

	if g.entities != nil {
		g.entities.ForEachEntity(func(e Entity) {
			if !e.BlocksFreePosFinder() {
				return
			}
			c := g.WorldToTile(e.WorldPosition().XZ())
			if g.IsInBounds(c) {
				g.fields[g.index(c)].IsUsed = true
			}
		})
	}

	g.dirty = false
	g.stats.Recalculations++
}

// refreshOccupancy пересчитывает занятость, если она помечена устаревшей
func (g *Grid) refreshOccupancy() {
	if g.dirty {
		g.RecalculateUsedFields()
	}
}
