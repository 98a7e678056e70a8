package world

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/storage"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
)

const defaultStoreTimeout = 2 * time.Second

// SetStore подключает хранилище: сущности региона сохраняются при выгрузке
// и возвращаются при повторной активации. Вызывается до активации регионов.
func (rm *RegionManager) SetStore(store storage.RegionStore, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	rm.store = store
	rm.storeTimeout = timeout
}

// SaveAll сохраняет сущности всех активных регионов
func (rm *RegionManager) SaveAll(ctx context.Context) error {
	if rm.store == nil {
		return nil
	}

	for _, region := range rm.snapshot() {
		region.mu.Lock()
		snap := region.record()
		region.mu.Unlock()

		if err := rm.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("save region (%d, %d): %w", snap.X, snap.Y, err)
		}
	}
	return nil
}

// record снимок сущностей региона. Вызывается под r.mu.
func (r *Region) record() *storage.RegionSnapshot {
	snap := &storage.RegionSnapshot{
		X:        r.key.X,
		Y:        r.key.Y,
		Entities: make([]storage.EntityRecord, 0, len(r.entities)),
		SavedAt:  time.Now().UTC(),
	}
	for _, e := range r.entities {
		snap.Entities = append(snap.Entities, storage.EntityRecord{
			ID:      e.ID,
			Type:    e.Type.String(),
			X:       e.PrecisePos.X,
			Y:       e.PrecisePos.Y,
			Height:  e.Height,
			Payload: e.Payload,
		})
	}
	sort.Slice(snap.Entities, func(i, j int) bool {
		return snap.Entities[i].ID < snap.Entities[j].ID
	})
	return snap
}

// persist сохраняет снимок выгружаемого региона
func (rm *RegionManager) persist(snap *storage.RegionSnapshot) {
	if rm.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rm.storeTimeout)
	defer cancel()
	if err := rm.store.Save(ctx, snap); err != nil {
		logging.Error("Не удалось сохранить регион (%d, %d): %v", snap.X, snap.Y, err)
		return
	}
	logging.Trace("Регион (%d, %d) сохранён: %d сущностей", snap.X, snap.Y, len(snap.Entities))
}

// restore возвращает в только что активированный регион сохранённые сущности
func (rm *RegionManager) restore(key RegionKey) int {
	if rm.store == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), rm.storeTimeout)
	defer cancel()
	snap, found, err := rm.store.Load(ctx, key.X, key.Y)
	if err != nil {
		logging.Error("Не удалось загрузить регион (%d, %d): %v", key.X, key.Y, err)
		return 0
	}
	if !found {
		return 0
	}

	restored := 0
	for _, rec := range snap.Entities {
		entityType, ok := entity.ParseEntityType(rec.Type)
		if !ok {
			logging.Warn("Регион (%d, %d): неизвестный тип сущности %q, пропущена", key.X, key.Y, rec.Type)
			continue
		}

		e := entity.NewEntity(rec.ID, entityType, vec.Vec2Float{X: rec.X, Y: rec.Y})
		e.Height = rec.Height
		if rec.Payload != nil {
			e.Payload = rec.Payload
		}
		if rm.KeyFor(e.PrecisePos) != key {
			logging.Warn("Сущность %d вне региона (%d, %d), пропущена", rec.ID, key.X, key.Y)
			continue
		}
		if err := rm.AddEntity(e); err != nil {
			logging.Warn("Сущность %d не восстановлена: %v", rec.ID, err)
			continue
		}
		restored++
	}
	return restored
}
