package world

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/navgrid/internal/config"
	"github.com/annel0/navgrid/internal/logging"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/storage"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world/entity"
)

var (
	ErrRegionNotActive = errors.New("world: region is not active")
	ErrNoFreePosition  = errors.New("world: no free position matches the constraints")
	ErrUnknownEntity   = errors.New("world: unknown entity")
	ErrEntityExists    = errors.New("world: entity already registered")
)

// Terrain источник высоты, уклона и грунта для сеток регионов
type Terrain interface {
	navgrid.TerrainSampler
	navgrid.TopographySampler
	WaterLevel() float64
}

// RegionManager управляет активными регионами, их навигационными сетками и сущностями
type RegionManager struct {
	terrain  Terrain
	nav      config.NavGridConfig
	cfg      config.WorldConfig
	entities *entity.Manager

	store        storage.RegionStore // nil: сущности выгруженных регионов не сохраняются
	storeTimeout time.Duration

	regions      map[RegionKey]*Region // Карта регионов
	regionsMu    sync.RWMutex          // Мьютекс для карты регионов
	entityRegion map[uint64]RegionKey  // Карта entity ID -> region key
	entityMu     sync.RWMutex          // Мьютекс для карты сущностей

	workerCount  int
	updateChan   chan *Region
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	running      atomic.Bool

	ticks    atomic.Uint64
	arrivals atomic.Uint64
	abandons atomic.Uint64
	retired  navgrid.Stats // Счётчики выгруженных регионов, под regionsMu
}

// Stats сводная статистика менеджера
type Stats struct {
	Regions  int           `json:"regions"`
	Entities int           `json:"entities"`
	Movers   int           `json:"movers"`
	Ticks    uint64        `json:"ticks"`
	Arrivals uint64        `json:"mover_arrivals"`
	Abandons uint64        `json:"mover_abandons"`
	Grid     navgrid.Stats `json:"grid"`
}

// RegionInfo краткое описание активного региона
type RegionInfo struct {
	Key      RegionKey `json:"key"`
	Entities int       `json:"entities"`
	Movers   int       `json:"movers"`
	Size     int       `json:"size"`
	Dirty    bool      `json:"dirty"`
}

// NewRegionManager создаёт новый менеджер регионов. Воркеры запускаются в Start.
func NewRegionManager(terrain Terrain, nav config.NavGridConfig, wc config.WorldConfig) *RegionManager {
	workerCount := wc.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	return &RegionManager{
		terrain:      terrain,
		nav:          nav,
		cfg:          wc,
		entities:     entity.NewManager(),
		regions:      make(map[RegionKey]*Region),
		entityRegion: make(map[uint64]RegionKey),
		workerCount:  workerCount,
		updateChan:   make(chan *Region, workerCount*2),
		shutdownChan: make(chan struct{}),
	}
}

// RegionScale размер региона в мировых единицах
func (rm *RegionManager) RegionScale() float64 {
	return rm.nav.RegionScale
}

// KeyFor возвращает ключ региона, содержащего позицию
func (rm *RegionManager) KeyFor(pos vec.Vec2Float) RegionKey {
	return RegionKeyFor(pos, rm.nav.RegionScale)
}

// ActivateRegion создаёт навигационную сетку региона. Повторная активация ничего не делает.
func (rm *RegionManager) ActivateRegion(key RegionKey) error {
	rm.regionsMu.RLock()
	_, exists := rm.regions[key]
	rm.regionsMu.RUnlock()
	if exists {
		return nil
	}

	region := newRegion(key, rm.nav.RegionScale)
	grid, err := navgrid.New(navgrid.Config{
		Terrain:             rm.terrain,
		Topography:          rm.terrain,
		Entities:            region,
		Origin:              region.origin,
		RegionScale:         rm.nav.RegionScale,
		FieldSize:           rm.nav.FieldSize,
		WaterLevel:          rm.terrain.WaterLevel(),
		MaxWalkableSlope:    rm.nav.MaxWalkableSlope,
		MaxSearchIterations: rm.nav.MaxSearchIterations,
		Seed:                regionSeed(rm.nav.ShuffleSeed, key),
	})
	if err != nil {
		return fmt.Errorf("activate region %v: %w", key, err)
	}
	region.grid = grid

	rm.regionsMu.Lock()
	_, exists = rm.regions[key]
	if !exists {
		rm.regions[key] = region
	}
	rm.regionsMu.Unlock()
	if exists {
		return nil
	}

	restored := rm.restore(key)
	logging.Debug("Регион (%d, %d) активирован: %dx%d клеток, восстановлено сущностей: %d",
		key.X, key.Y, grid.Size(), grid.Size(), restored)
	return nil
}

// UnloadRegion выгружает регион вместе с его сущностями
func (rm *RegionManager) UnloadRegion(key RegionKey) bool {
	rm.regionsMu.Lock()
	region, exists := rm.regions[key]
	if exists {
		delete(rm.regions, key)
		region.mu.Lock()
		rm.retired.Add(region.grid.Stats())
		region.mu.Unlock()
	}
	rm.regionsMu.Unlock()

	if !exists {
		return false
	}

	region.mu.Lock()
	var snap *storage.RegionSnapshot
	if rm.store != nil {
		snap = region.record()
	}
	ids := make([]uint64, 0, len(region.entities))
	for id := range region.entities {
		ids = append(ids, id)
	}
	region.mu.Unlock()

	if snap != nil {
		rm.persist(snap)
	}

	rm.entityMu.Lock()
	for _, id := range ids {
		delete(rm.entityRegion, id)
		rm.entities.Remove(id)
	}
	rm.entityMu.Unlock()

	logging.Debug("Регион (%d, %d) выгружен, удалено сущностей: %d", key.X, key.Y, len(ids))
	return true
}

// IsActive сообщает, активен ли регион
func (rm *RegionManager) IsActive(key RegionKey) bool {
	rm.regionsMu.RLock()
	defer rm.regionsMu.RUnlock()
	_, exists := rm.regions[key]
	return exists
}

// Regions возвращает описание активных регионов, отсортированное по ключу
func (rm *RegionManager) Regions() []RegionInfo {
	regions := rm.snapshot()
	infos := make([]RegionInfo, 0, len(regions))
	for _, r := range regions {
		r.mu.Lock()
		infos = append(infos, RegionInfo{
			Key:      r.key,
			Entities: len(r.entities),
			Movers:   len(r.movers),
			Size:     r.grid.Size(),
			Dirty:    r.grid.IsDirty(),
		})
		r.mu.Unlock()
	}
	return infos
}

// AddEntity регистрирует сущность в регионе по её позиции
func (rm *RegionManager) AddEntity(e *entity.Entity) error {
	key := rm.KeyFor(e.PrecisePos)
	region, err := rm.region(key)
	if err != nil {
		return err
	}
	if !rm.entities.Register(e) {
		return fmt.Errorf("add entity %d: %w", e.ID, ErrEntityExists)
	}
	rm.insert(key, region, e)
	return nil
}

// PlaceEntity создаёт сущность на поверхности в заданной точке
func (rm *RegionManager) PlaceEntity(entityType entity.EntityType, pos vec.Vec2Float) (*entity.Entity, error) {
	key := rm.KeyFor(pos)
	region, err := rm.region(key)
	if err != nil {
		return nil, err
	}

	e := rm.entities.Create(entityType, pos)
	e.Height = rm.terrain.Height(pos)
	rm.insert(key, region, e)
	return e, nil
}

// EntityView копия состояния сущности, снятая под блокировкой региона
type EntityView struct {
	ID         uint64
	Type       entity.EntityType
	PrecisePos vec.Vec2Float
	Height     float64
}

// WorldPosition позиция в мировых координатах (x, height, z)
func (v EntityView) WorldPosition() vec.Vec3Float {
	return v.PrecisePos.WithHeight(v.Height)
}

// SpawnPredicates ограничения для появления наземных сущностей: суша, проходимый уклон
func (rm *RegionManager) SpawnPredicates(ground navgrid.GroundMask) navgrid.PlacementPredicates {
	return navgrid.PlacementPredicates{
		Water:  navgrid.WaterAbove,
		Slope:  navgrid.SlopeRange{Min: 0, Max: rm.nav.MaxWalkableSlope},
		Ground: ground,
	}
}

// SpawnEntity ставит сущность на случайную подходящую клетку региона.
// Клетка занимается сразу, без пересчёта занятости.
func (rm *RegionManager) SpawnEntity(key RegionKey, entityType entity.EntityType, p navgrid.PlacementPredicates) (EntityView, error) {
	region, err := rm.region(key)
	if err != nil {
		return EntityView{}, err
	}

	region.mu.Lock()
	pos, ok := region.grid.GetRandomPosMatching(p)
	if !ok {
		region.mu.Unlock()
		return EntityView{}, ErrNoFreePosition
	}

	e := rm.entities.Create(entityType, pos.XZ())
	e.Height = pos.Y
	rm.attach(region, e)
	if e.BlocksFreePosFinder() {
		region.grid.UseFieldAt(pos.XZ())
		region.tiles[e.ID] = region.grid.WorldToTile(pos.XZ())
	}
	view := EntityView{ID: e.ID, Type: e.Type, PrecisePos: e.PrecisePos, Height: e.Height}
	region.mu.Unlock()

	rm.entityMu.Lock()
	rm.entityRegion[e.ID] = key
	rm.entityMu.Unlock()

	logging.Trace("Сущность %d (%s) появилась в (%.1f, %.1f)", view.ID, view.Type, pos.X, pos.Z)
	return view, nil
}

// MoveEntity переносит сущность в новую точку, при необходимости между регионами
func (rm *RegionManager) MoveEntity(entityID uint64, pos vec.Vec2Float) error {
	e, ok := rm.entities.Get(entityID)
	if !ok {
		return ErrUnknownEntity
	}

	rm.entityMu.RLock()
	oldKey, ok := rm.entityRegion[entityID]
	rm.entityMu.RUnlock()
	if !ok {
		return ErrUnknownEntity
	}

	newKey := rm.KeyFor(pos)
	newRegion, err := rm.region(newKey)
	if err != nil {
		return err
	}

	if oldKey == newKey {
		newRegion.mu.Lock()
		e.PrecisePos = pos
		e.Height = rm.terrain.Height(pos)
		if newRegion.track(e) {
			newRegion.grid.SetDirty()
		}
		newRegion.mu.Unlock()
		return nil
	}

	var mover *GroundMover
	if oldRegion, err := rm.region(oldKey); err == nil {
		oldRegion.mu.Lock()
		delete(oldRegion.entities, entityID)
		mover = oldRegion.movers[entityID]
		delete(oldRegion.movers, entityID)
		if oldRegion.untrack(entityID) {
			oldRegion.grid.SetDirty()
		}
		oldRegion.mu.Unlock()
	}

	newRegion.mu.Lock()
	e.PrecisePos = pos
	e.Height = rm.terrain.Height(pos)
	newRegion.entities[entityID] = e
	if mover != nil {
		newRegion.movers[entityID] = mover
	}
	if newRegion.track(e) {
		newRegion.grid.SetDirty()
	}
	newRegion.mu.Unlock()

	rm.entityMu.Lock()
	rm.entityRegion[entityID] = newKey
	rm.entityMu.Unlock()
	return nil
}

// RemoveEntity удаляет сущность из мира
func (rm *RegionManager) RemoveEntity(entityID uint64) bool {
	if _, ok := rm.entities.Remove(entityID); !ok {
		return false
	}

	rm.entityMu.Lock()
	key, exists := rm.entityRegion[entityID]
	delete(rm.entityRegion, entityID)
	rm.entityMu.Unlock()
	if !exists {
		return true
	}

	if region, err := rm.region(key); err == nil {
		region.mu.Lock()
		delete(region.entities, entityID)
		delete(region.movers, entityID)
		if region.untrack(entityID) {
			region.grid.SetDirty()
		}
		region.mu.Unlock()
	}
	return true
}

// GetEntity возвращает сущность по ID
func (rm *RegionManager) GetEntity(entityID uint64) (*entity.Entity, bool) {
	return rm.entities.Get(entityID)
}

// GetRandomPosMatching случайная свободная клетка региона под ограничения
func (rm *RegionManager) GetRandomPosMatching(key RegionKey, p navgrid.PlacementPredicates) (vec.Vec3Float, bool, error) {
	region, err := rm.region(key)
	if err != nil {
		return vec.Vec3Float{}, false, err
	}

	region.mu.Lock()
	defer region.mu.Unlock()
	pos, ok := region.grid.GetRandomPosMatching(p)
	return pos, ok, nil
}

// GetPathFoundNextCheckpoint следующая контрольная точка на пути внутри региона
func (rm *RegionManager) GetPathFoundNextCheckpoint(key RegionKey, from, to vec.Vec2Float) (vec.Vec3Float, bool, error) {
	region, err := rm.region(key)
	if err != nil {
		return vec.Vec3Float{}, false, err
	}

	region.mu.Lock()
	defer region.mu.Unlock()
	cp, clearWay := region.grid.GetPathFoundNextCheckpoint(from, to)
	return cp, clearWay, nil
}

// UseFieldAt сразу помечает клетку занятой
func (rm *RegionManager) UseFieldAt(key RegionKey, pos vec.Vec2Float) error {
	return rm.WithGrid(key, func(g *navgrid.Grid) {
		g.UseFieldAt(pos)
	})
}

// SetDirty помечает занятость региона устаревшей
func (rm *RegionManager) SetDirty(key RegionKey) error {
	return rm.WithGrid(key, func(g *navgrid.Grid) {
		g.SetDirty()
	})
}

// WithGrid выполняет fn над сеткой региона под его блокировкой
func (rm *RegionManager) WithGrid(key RegionKey, fn func(g *navgrid.Grid)) error {
	region, err := rm.region(key)
	if err != nil {
		return err
	}

	region.mu.Lock()
	defer region.mu.Unlock()
	fn(region.grid)
	return nil
}

// Start запускает воркеров и цикл обновления регионов
func (rm *RegionManager) Start() {
	if !rm.running.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < rm.workerCount; i++ {
		rm.wg.Add(1)
		go rm.worker(i)
	}

	rm.wg.Add(1)
	go rm.updateLoop()

	logging.Info("RegionManager запущен: воркеров %d, тик %d мс", rm.workerCount, rm.cfg.TickMs)
}

// Stop останавливает воркеров и ждёт их завершения
func (rm *RegionManager) Stop() {
	if !rm.running.CompareAndSwap(true, false) {
		return
	}
	close(rm.shutdownChan)
	rm.wg.Wait()
}

// TickOnce синхронно обновляет все регионы на dt
func (rm *RegionManager) TickOnce(dt time.Duration) {
	for _, region := range rm.snapshot() {
		rm.updateRegion(region, dt)
	}
	rm.ticks.Add(1)
}

// Stats возвращает сводную статистику
func (rm *RegionManager) Stats() Stats {
	rm.regionsMu.RLock()
	s := Stats{
		Regions: len(rm.regions),
		Grid:    rm.retired,
	}
	for _, region := range rm.regions {
		region.mu.Lock()
		s.Movers += len(region.movers)
		s.Grid.Add(region.grid.Stats())
		region.mu.Unlock()
	}
	rm.regionsMu.RUnlock()

	s.Entities = rm.entities.Count()
	s.Ticks = rm.ticks.Load()
	s.Arrivals = rm.arrivals.Load()
	s.Abandons = rm.abandons.Load()
	return s
}

// GetStats возвращает статистику одной строкой для логов
func (rm *RegionManager) GetStats() string {
	s := rm.Stats()
	return fmt.Sprintf("RegionManager: %d regions, %d entities, %d movers, %d searches, %d recalculations",
		s.Regions, s.Entities, s.Movers, s.Grid.Searches, s.Grid.Recalculations)
}

// Внутренние методы

func (rm *RegionManager) region(key RegionKey) (*Region, error) {
	rm.regionsMu.RLock()
	defer rm.regionsMu.RUnlock()

	region, exists := rm.regions[key]
	if !exists {
		return nil, fmt.Errorf("region (%d, %d): %w", key.X, key.Y, ErrRegionNotActive)
	}
	return region, nil
}

// snapshot список активных регионов в порядке ключей
func (rm *RegionManager) snapshot() []*Region {
	rm.regionsMu.RLock()
	regions := make([]*Region, 0, len(rm.regions))
	for _, r := range rm.regions {
		regions = append(regions, r)
	}
	rm.regionsMu.RUnlock()

	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i].key, regions[j].key
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return regions
}

// insert добавляет зарегистрированную сущность в регион и помечает занятость устаревшей
func (rm *RegionManager) insert(key RegionKey, region *Region, e *entity.Entity) {
	region.mu.Lock()
	rm.attach(region, e)
	if region.track(e) {
		region.grid.SetDirty()
	}
	region.mu.Unlock()

	rm.entityMu.Lock()
	rm.entityRegion[e.ID] = key
	rm.entityMu.Unlock()
}

// attach кладёт сущность в регион и заводит ИИ для подвижных типов; region.mu захвачен
func (rm *RegionManager) attach(region *Region, e *entity.Entity) {
	region.entities[e.ID] = e
	if e.Type.IsMobile() {
		region.movers[e.ID] = NewGroundMover(e, rm.moverConfig())
	}
}

func (rm *RegionManager) moverConfig() MoverConfig {
	return MoverConfig{
		Speed:       2 * rm.nav.FieldSize,
		Requery:     time.Duration(rm.cfg.AIRequeryMs) * time.Millisecond,
		MaxFailures: rm.cfg.AIMaxFailures,
		IdleMin:     time.Second,
		IdleMax:     4 * time.Second,
		ArriveDist:  rm.nav.FieldSize / 4,
		Targets: navgrid.PlacementPredicates{
			Water: navgrid.WaterAbove,
			Slope: navgrid.SlopeRange{Min: 0, Max: rm.nav.MaxWalkableSlope},
		},
	}
}

// worker обрабатывает регионы
func (rm *RegionManager) worker(id int) {
	defer rm.wg.Done()

	for {
		select {
		case <-rm.shutdownChan:
			return
		case region := <-rm.updateChan:
			rm.updateRegion(region, 0)
		}
	}
}

// updateLoop основной цикл обновления
func (rm *RegionManager) updateLoop() {
	defer rm.wg.Done()

	tick := time.Duration(rm.cfg.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-rm.shutdownChan:
			return
		case <-ticker.C:
			for _, region := range rm.snapshot() {
				select {
				case rm.updateChan <- region:
				default:
					// Канал полон, регион обновится на следующем тике
				}
			}
			rm.ticks.Add(1)
		}
	}
}

// updateRegion продвигает ИИ региона; dt == 0 означает «с прошлого обновления»
func (rm *RegionManager) updateRegion(region *Region, dt time.Duration) {
	region.mu.Lock()
	defer region.mu.Unlock()

	now := time.Now()
	if dt <= 0 {
		dt = now.Sub(region.lastUpdate)
	}
	region.lastUpdate = now

	for id, mover := range region.movers {
		e, ok := region.entities[id]
		if !ok || !e.Active {
			continue
		}

		switch mover.Update(e, region.grid, dt) {
		case MoverEventArrived:
			rm.arrivals.Add(1)
		case MoverEventAbandoned:
			rm.abandons.Add(1)
			logging.Trace("Сущность %d отказалась от цели после %d неудач", id, rm.cfg.AIMaxFailures)
		}

		e.PrecisePos = region.clampInside(e.PrecisePos)
		if region.track(e) {
			region.grid.SetDirty()
		}
	}
}

// regionSeed детерминированный сид перемешивания для региона
func regionSeed(base int64, key RegionKey) int64 {
	return base ^ (int64(key.X) * 73856093) ^ (int64(key.Y) * 19349663)
}
