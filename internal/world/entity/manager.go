package entity

import (
	"sort"
	"sync"

	"github.com/annel0/navgrid/internal/vec"
)

// FirstEntityID первый выдаваемый идентификатор; меньшие зарезервированы
const FirstEntityID uint64 = 1000

// Manager выдаёт идентификаторы и хранит реестр всех сущностей
type Manager struct {
	entities     map[uint64]*Entity
	nextEntityID uint64
	mu           sync.RWMutex
}

// NewManager создаёт новый менеджер сущностей
func NewManager() *Manager {
	return &Manager{
		entities:     make(map[uint64]*Entity),
		nextEntityID: FirstEntityID,
	}
}

// Create создаёт сущность со следующим свободным ID и регистрирует её
func (m *Manager) Create(entityType EntityType, position vec.Vec2Float) *Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := NewEntity(m.nextEntityID, entityType, position)
	m.nextEntityID++
	m.entities[e.ID] = e
	return e
}

// Register добавляет уже созданную сущность. Возвращает false, если ID занят.
func (m *Manager) Register(e *Entity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entities[e.ID]; exists {
		return false
	}
	m.entities[e.ID] = e
	if e.ID >= m.nextEntityID {
		m.nextEntityID = e.ID + 1
	}
	return true
}

// Remove удаляет сущность из реестра
func (m *Manager) Remove(entityID uint64) (*Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entities[entityID]
	if exists {
		delete(m.entities, entityID)
	}
	return e, exists
}

// Get возвращает сущность по ID
func (m *Manager) Get(entityID uint64) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entities[entityID]
	return e, exists
}

// Count возвращает количество зарегистрированных сущностей
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// IDs возвращает отсортированный список идентификаторов
func (m *Manager) IDs() []uint64 {
	m.mu.RLock()
	ids := make([]uint64, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
