package world

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/navgrid/internal/eventbus"
	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
)

// Типы событий размещения
const (
	EventPlacementSpawn   = "PlacementSpawn"
	EventPlacementMove    = "PlacementMove"
	EventPlacementDespawn = "PlacementDespawn"
)

// PlacementEvent полезная нагрузка событий размещения (JSON).
// Spawn без координат (Random) ставит сущность на случайную свободную сушу региона Region.
type PlacementEvent struct {
	EntityID   uint64    `json:"entity_id,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Random     bool      `json:"random,omitempty"`
	Ground     []string  `json:"ground,omitempty"`
	Region     RegionKey `json:"region"`
}

// NewPlacementEnvelope упаковывает событие размещения в конверт шины
func NewPlacementEnvelope(source, eventType string, ev PlacementEvent) (*eventbus.Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal placement event: %w", err)
	}
	env := eventbus.NewEnvelope(source, eventType, payload)
	env.Priority = eventbus.PriorityHigh
	return env, nil
}

// PlacementListener применяет события размещения к менеджеру регионов
type PlacementListener struct {
	rm  *RegionManager
	sub eventbus.Subscription
}

// NewPlacementListener создаёт слушателя, но не подписывает его
func NewPlacementListener(rm *RegionManager) *PlacementListener {
	return &PlacementListener{rm: rm}
}

// Start подписывается на события размещения. Неблокирующий.
func (pl *PlacementListener) Start(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{
		Types:   []string{EventPlacementSpawn, EventPlacementMove, EventPlacementDespawn},
		Durable: "navgrid-placement",
	}, pl.Handle)
	if err != nil {
		return fmt.Errorf("subscribe placement events: %w", err)
	}
	pl.sub = sub
	logging.Info("PlacementListener: подписка на события размещения активирована")
	return nil
}

// Stop отписывается от шины
func (pl *PlacementListener) Stop() {
	if pl.sub != nil {
		pl.sub.Unsubscribe()
		pl.sub = nil
	}
}

// Handle обрабатывает одно событие; ошибки только логируются
func (pl *PlacementListener) Handle(ctx context.Context, env *eventbus.Envelope) {
	if err := pl.apply(env); err != nil {
		logging.Warn("PlacementListener: событие %s (%s) не применено: %v", env.ID, env.EventType, err)
	}
}

func (pl *PlacementListener) apply(env *eventbus.Envelope) error {
	switch env.EventType {
	case EventPlacementSpawn, EventPlacementMove, EventPlacementDespawn:
	default:
		return nil
	}

	var ev PlacementEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	pos := vec.Vec2Float{X: ev.X, Y: ev.Y}

	switch env.EventType {
	case EventPlacementSpawn:
		entityType, ok := entity.ParseEntityType(ev.EntityType)
		if !ok {
			return fmt.Errorf("unknown entity type %q", ev.EntityType)
		}
		if ev.Random {
			ground, err := navgrid.ParseGrounds(ev.Ground)
			if err != nil {
				return err
			}
			_, err = pl.rm.SpawnEntity(ev.Region, entityType, pl.rm.SpawnPredicates(ground))
			return err
		}
		if ev.EntityID != 0 {
			e := entity.NewEntity(ev.EntityID, entityType, pos)
			e.Height = pl.rm.terrain.Height(pos)
			return pl.rm.AddEntity(e)
		}
		_, err := pl.rm.PlaceEntity(entityType, pos)
		return err

	case EventPlacementMove:
		return pl.rm.MoveEntity(ev.EntityID, pos)

	default:
		if !pl.rm.RemoveEntity(ev.EntityID) {
			return ErrUnknownEntity
		}
		return nil
	}
}
