package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
)

// MoverEvent итог одного обновления наземного ИИ
type MoverEvent uint8

const (
	MoverEventNone MoverEvent = iota
	MoverEventArrived
	MoverEventAbandoned
)

// MoverConfig параметры наземного ИИ
type MoverConfig struct {
	Speed       float64       // Мировых единиц в секунду
	Requery     time.Duration // Период повторного запроса контрольной точки
	MaxFailures int           // Подряд ответов clearWay=false до отказа от цели
	IdleMin     time.Duration
	IdleMax     time.Duration
	ArriveDist  float64
	Targets     navgrid.PlacementPredicates // Ограничения для выбора цели
}

// moverState состояние конечного автомата наземного ИИ
type moverState interface {
	Enter(m *GroundMover, e *entity.Entity)
	Update(m *GroundMover, e *entity.Entity, grid *navgrid.Grid, dt time.Duration) (moverState, MoverEvent)
}

// GroundMover ведёт сущность к случайным целям через контрольные точки сетки
type GroundMover struct {
	entityID uint64
	cfg      MoverConfig
	rng      *rand.Rand
	state    moverState

	target     vec.Vec3Float
	checkpoint vec.Vec3Float
	hasTarget  bool
	failures   int
}

// NewGroundMover создаёт ИИ в состоянии покоя
func NewGroundMover(e *entity.Entity, cfg MoverConfig) *GroundMover {
	if cfg.IdleMax < cfg.IdleMin {
		cfg.IdleMax = cfg.IdleMin
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	m := &GroundMover{
		entityID: e.ID,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(int64(e.ID))),
	}
	m.setState(&idleState{}, e)
	return m
}

// Target текущая цель, если она выбрана
func (m *GroundMover) Target() (vec.Vec3Float, bool) {
	return m.target, m.hasTarget
}

// Failures число подряд идущих ответов без чистого пути
func (m *GroundMover) Failures() int {
	return m.failures
}

// Update продвигает автомат на dt
func (m *GroundMover) Update(e *entity.Entity, grid *navgrid.Grid, dt time.Duration) MoverEvent {
	next, ev := m.state.Update(m, e, grid, dt)
	if next != m.state {
		m.setState(next, e)
	}
	return ev
}

func (m *GroundMover) setState(s moverState, e *entity.Entity) {
	m.state = s
	s.Enter(m, e)
}

func (m *GroundMover) randomIdle() time.Duration {
	span := m.cfg.IdleMax - m.cfg.IdleMin
	if span <= 0 {
		return m.cfg.IdleMin
	}
	return m.cfg.IdleMin + time.Duration(m.rng.Int63n(int64(span)))
}

// idleState стоит на месте, затем выбирает цель
type idleState struct {
	left time.Duration
}

func (s *idleState) Enter(m *GroundMover, e *entity.Entity) {
	s.left = m.randomIdle()
	m.hasTarget = false
	m.failures = 0
	e.Velocity = vec.Vec2Float{}
}

func (s *idleState) Update(m *GroundMover, e *entity.Entity, grid *navgrid.Grid, dt time.Duration) (moverState, MoverEvent) {
	s.left -= dt
	if s.left > 0 {
		return s, MoverEventNone
	}

	target, ok := grid.GetRandomPosMatching(m.cfg.Targets)
	if !ok {
		s.left = m.randomIdle()
		return s, MoverEventNone
	}
	m.target = target
	m.hasTarget = true
	return &seekState{}, MoverEventNone
}

// seekState идёт к цели, периодически спрашивая следующую контрольную точку
type seekState struct {
	sinceQuery time.Duration
	queried    bool
}

func (s *seekState) Enter(m *GroundMover, e *entity.Entity) {
	m.failures = 0
	s.queried = false
}

func (s *seekState) Update(m *GroundMover, e *entity.Entity, grid *navgrid.Grid, dt time.Duration) (moverState, MoverEvent) {
	if e.PrecisePos.DistanceTo(m.target.XZ()) <= m.cfg.ArriveDist {
		e.PrecisePos = m.target.XZ()
		e.Height = m.target.Y
		return &idleState{}, MoverEventArrived
	}

	s.sinceQuery += dt
	if !s.queried || s.sinceQuery >= m.cfg.Requery {
		s.sinceQuery = 0
		s.queried = true

		checkpoint, clearWay := grid.GetPathFoundNextCheckpoint(e.PrecisePos, m.target.XZ())
		m.checkpoint = checkpoint
		if clearWay {
			m.failures = 0
		} else {
			m.failures++
			if m.failures >= m.cfg.MaxFailures {
				return &idleState{}, MoverEventAbandoned
			}
		}
	}

	if reached := stepTowards(e, m.checkpoint, m.cfg.Speed, dt); reached {
		// Точка достигнута раньше таймера: следующую спросим на этом же тике
		s.queried = false
	}
	return s, MoverEventNone
}

// stepTowards сдвигает сущность к точке на speed*dt; true, если точка достигнута
func stepTowards(e *entity.Entity, point vec.Vec3Float, speed float64, dt time.Duration) bool {
	step := speed * dt.Seconds()
	dir := point.XZ().Sub(e.PrecisePos)
	dist := dir.Length()
	if dist <= step {
		e.PrecisePos = point.XZ()
		e.Height = point.Y
		e.Velocity = vec.Vec2Float{}
		return true
	}

	norm := dir.Normalized()
	e.PrecisePos = e.PrecisePos.Add(norm.Mul(step))
	e.Velocity = norm.Mul(speed)
	e.Direction = calculateDirection(norm)
	return false
}

// calculateDirection переводит вектор в одно из 4 направлений взгляда
func calculateDirection(direction vec.Vec2Float) int {
	if math.Abs(direction.X) > math.Abs(direction.Y) {
		if direction.X > 0 {
			return 1 // Восток
		}
		return 3 // Запад
	}
	if direction.Y > 0 {
		return 0 // Юг
	}
	return 2 // Север
}
