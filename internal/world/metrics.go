package world

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter периодически переносит Stats менеджера регионов в Prometheus
type MetricsExporter struct {
	rm   *RegionManager
	quit chan struct{}
	done chan struct{}
	prev Stats
	mu   sync.Mutex

	regions  prometheus.Gauge
	entities prometheus.Gauge
	movers   prometheus.Gauge

	searches       *prometheus.CounterVec
	nodesExpanded  prometheus.Counter
	randomQueries  *prometheus.CounterVec
	checkpoints    *prometheus.CounterVec
	recalculations prometheus.Counter
	epochWraps     prometheus.Counter
	moverEvents    *prometheus.CounterVec
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg
func NewMetricsExporter(rm *RegionManager, reg prometheus.Registerer) *MetricsExporter {
	me := &MetricsExporter{
		rm:   rm,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		regions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navgrid",
			Name:      "regions_active",
			Help:      "Количество активных регионов.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navgrid",
			Name:      "entities",
			Help:      "Количество зарегистрированных сущностей.",
		}),
		movers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navgrid",
			Name:      "movers",
			Help:      "Количество сущностей под управлением наземного ИИ.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "path_searches_total",
			Help:      "Поиски пути A* по исходу.",
		}, []string{"outcome"}),
		nodesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "nodes_expanded_total",
			Help:      "Клеток извлечено из открытого множества.",
		}),
		randomQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "random_position_queries_total",
			Help:      "Запросы случайной свободной позиции.",
		}, []string{"result"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "checkpoint_queries_total",
			Help:      "Запросы контрольной точки по ветке ответа.",
		}, []string{"kind"}),
		recalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "occupancy_recalculations_total",
			Help:      "Полные пересчёты занятости.",
		}),
		epochWraps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "epoch_wraps_total",
			Help:      "Переполнения счётчика эпох поиска.",
		}),
		moverEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navgrid",
			Name:      "mover_events_total",
			Help:      "События наземного ИИ.",
		}, []string{"event"}),
	}

	reg.MustRegister(me.regions, me.entities, me.movers, me.searches, me.nodesExpanded,
		me.randomQueries, me.checkpoints, me.recalculations, me.epochWraps, me.moverEvents)
	return me
}

// Start запускает периодический сбор. Неблокирующий.
func (m *MetricsExporter) Start(interval time.Duration) {
	go m.loop(interval)
}

// Stop останавливает сбор
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

// Collect переносит текущие счётчики; счётчики Prometheus растут на дельту
func (m *MetricsExporter) Collect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.rm.Stats()
	p := m.prev

	m.regions.Set(float64(s.Regions))
	m.entities.Set(float64(s.Entities))
	m.movers.Set(float64(s.Movers))

	addDelta(m.searches.WithLabelValues("found"), s.Grid.SearchesFound, p.Grid.SearchesFound)
	addDelta(m.searches.WithLabelValues("exhausted"), s.Grid.SearchesExhausted, p.Grid.SearchesExhausted)
	addDelta(m.searches.WithLabelValues("iteration_limit"), s.Grid.SearchesIterationLimit, p.Grid.SearchesIterationLimit)
	addDelta(m.searches.WithLabelValues("destination_blocked"), s.Grid.SearchesDestinationBlocked, p.Grid.SearchesDestinationBlocked)
	addDelta(m.searches.WithLabelValues("out_of_bounds"), s.Grid.SearchesOutOfBounds, p.Grid.SearchesOutOfBounds)
	addDelta(m.nodesExpanded, s.Grid.NodesExpanded, p.Grid.NodesExpanded)

	addDelta(m.randomQueries.WithLabelValues("hit"), s.Grid.RandomQueries-s.Grid.RandomMisses, p.Grid.RandomQueries-p.Grid.RandomMisses)
	addDelta(m.randomQueries.WithLabelValues("miss"), s.Grid.RandomMisses, p.Grid.RandomMisses)

	addDelta(m.checkpoints.WithLabelValues("direct"), s.Grid.CheckpointDirect, p.Grid.CheckpointDirect)
	addDelta(m.checkpoints.WithLabelValues("out_of_region"), s.Grid.CheckpointOutOfRegion, p.Grid.CheckpointOutOfRegion)
	addDelta(m.checkpoints.WithLabelValues("fallback"), s.Grid.CheckpointFallbacks, p.Grid.CheckpointFallbacks)
	addDelta(m.checkpoints.WithLabelValues("all"), s.Grid.CheckpointQueries, p.Grid.CheckpointQueries)

	addDelta(m.recalculations, s.Grid.Recalculations, p.Grid.Recalculations)
	addDelta(m.epochWraps, s.Grid.EpochWraps, p.Grid.EpochWraps)
	addDelta(m.moverEvents.WithLabelValues("arrived"), s.Arrivals, p.Arrivals)
	addDelta(m.moverEvents.WithLabelValues("abandoned"), s.Abandons, p.Abandons)

	m.prev = s
}

func (m *MetricsExporter) loop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Collect()
		case <-m.quit:
			return
		}
	}
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
