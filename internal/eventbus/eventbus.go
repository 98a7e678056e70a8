package eventbus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         // Время создания события (UTC).
	Source        string            // Имя сервиса-источника.
	EventType     string            // Тип события (PlacementSpawn, PlacementMove…).
	Version       int               // Схема полезной нагрузки.
	CorrelationID string            // Для связывания цепочек.
	Tenant        string            // Для мульти-тенанности (пока пусто).
	Priority      int               // PriorityLow..PriorityCritical, для backpressure.
	Payload       []byte            // Сериализованная полезная нагрузка (JSON).
	Metadata      map[string]string // Произвольные метаданные.
}

// Приоритеты. События ниже PriorityHigh отбрасываются при переполнении буфера.
const (
	PriorityLow      = 0
	PriorityNormal   = 3
	PriorityHigh     = 5
	PriorityCritical = 9
)

// ErrBusClosed публикация в закрытую шину
var ErrBusClosed = errors.New("eventbus: bus is closed")

// NewEnvelope создаёт конверт с новым UUID и текущим временем (UTC).
func NewEnvelope(source, eventType string, payload []byte) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Payload:   payload,
		Metadata:  make(map[string]string),
	}
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Пусто: все типы.
	Sources []string // Пусто: все источники.
	Durable string   // Только JetStream: имя durable consumer. Пусто: только новые события.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий: in-memory и JetStream.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}
