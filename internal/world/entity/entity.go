package entity

import (
	"strings"

	"github.com/annel0/navgrid/internal/vec"
)

// EntityType представляет тип сущности
type EntityType uint16

const (
	EntityTypePlayer EntityType = iota
	EntityTypeNPC
	EntityTypeAnimal
	EntityTypeStructure // Постройка
	EntityTypeTree
	EntityTypeItem // Лежащий предмет
	EntityTypeProjectile
)

var entityTypeNames = [...]string{
	EntityTypePlayer:     "player",
	EntityTypeNPC:        "npc",
	EntityTypeAnimal:     "animal",
	EntityTypeStructure:  "structure",
	EntityTypeTree:       "tree",
	EntityTypeItem:       "item",
	EntityTypeProjectile: "projectile",
}

func (t EntityType) String() string {
	if int(t) < len(entityTypeNames) {
		return entityTypeNames[t]
	}
	return "unknown"
}

// ParseEntityType разбирает имя типа без учёта регистра
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range entityTypeNames {
		if name == s {
			return EntityType(i), true
		}
	}
	return 0, false
}

// IsMobile сообщает, передвигается ли сущность сама по земле
func (t EntityType) IsMobile() bool {
	return t == EntityTypeNPC || t == EntityTypeAnimal
}

// Entity представляет базовую сущность в мире
type Entity struct {
	ID         uint64                 // Уникальный идентификатор сущности
	Type       EntityType             // Тип сущности
	PrecisePos vec.Vec2Float          // Позиция на плоскости (x, z)
	Height     float64                // Высота над уровнем, обычно высота поверхности
	Velocity   vec.Vec2Float          // Текущая скорость
	Payload    map[string]interface{} // Дополнительные данные сущности
	Active     bool                   // Активна ли сущность
	Direction  int                    // Направление взгляда (0-3)
}

// NewEntity создаёт новую сущность
func NewEntity(id uint64, entityType EntityType, position vec.Vec2Float) *Entity {
	return &Entity{
		ID:         id,
		Type:       entityType,
		PrecisePos: position,
		Payload:    make(map[string]interface{}),
		Active:     true,
	}
}

// BlocksFreePosFinder сообщает, занимает ли сущность клетку для поиска свободных позиций.
// Предметы и снаряды клетку не занимают, неактивные сущности тоже.
func (e *Entity) BlocksFreePosFinder() bool {
	if !e.Active {
		return false
	}
	switch e.Type {
	case EntityTypeItem, EntityTypeProjectile:
		return false
	default:
		return true
	}
}

// WorldPosition возвращает позицию в мировых координатах (x, height, z)
func (e *Entity) WorldPosition() vec.Vec3Float {
	return e.PrecisePos.WithHeight(e.Height)
}
