package navgrid

// openSet индексированная двоичная куча номеров клеток, упорядоченная по
// (scoreF, index). Позиция клетки в куче хранится в Field.heapIndex, поэтому
// обновление оценки уже открытой клетки стоит O(log n).
type openSet struct {
	fields []Field
	items  []int
}

func (o *openSet) Len() int {
	return len(o.items)
}

func (o *openSet) reset() {
	for _, idx := range o.items {
		o.fields[idx].heapIndex = -1
	}
	o.items = o.items[:0]
}

func (o *openSet) less(i, j int) bool {
	a, b := o.items[i], o.items[j]
	fa, fb := o.fields[a].scoreF, o.fields[b].scoreF
	if fa != fb {
		return fa < fb
	}
	return a < b
}

func (o *openSet) swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.fields[o.items[i]].heapIndex = i
	o.fields[o.items[j]].heapIndex = j
}

func (o *openSet) push(idx int) {
	o.fields[idx].heapIndex = len(o.items)
	o.items = append(o.items, idx)
	o.up(len(o.items) - 1)
}

// popMin извлекает клетку с наименьшим (scoreF, index)
func (o *openSet) popMin() int {
	n := len(o.items) - 1
	o.swap(0, n)
	o.down(0, n)

	idx := o.items[n]
	o.items = o.items[:n]
	o.fields[idx].heapIndex = -1
	return idx
}

// fix восстанавливает порядок после уменьшения scoreF клетки
func (o *openSet) fix(idx int) {
	i := o.fields[idx].heapIndex
	if !o.down(i, len(o.items)) {
		o.up(i)
	}
}

func (o *openSet) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !o.less(j, i) {
			break
		}
		o.swap(i, j)
		j = i
	}
}

func (o *openSet) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && o.less(j2, j1) {
			j = j2
		}
		if !o.less(j, i) {
			break
		}
		o.swap(i, j)
		i = j
	}
	return i > i0
}
