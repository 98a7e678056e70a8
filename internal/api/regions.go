package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/annel0/navgrid/internal/eventbus"
	"github.com/annel0/navgrid/internal/navgrid"
	"github.com/annel0/navgrid/internal/vec"
	"github.com/annel0/navgrid/internal/world"
	"github.com/annel0/navgrid/internal/world/entity"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Position точка в мировых координатах (y - высота)
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func positionOf(v vec.Vec3Float) Position {
	return Position{X: v.X, Y: v.Y, Z: v.Z}
}

// CheckpointResponse ответ на запрос контрольной точки
type CheckpointResponse struct {
	Checkpoint Position `json:"checkpoint"`
	ClearWay   bool     `json:"clear_way"`
}

// UseFieldRequest тело запроса POST /use
type UseFieldRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpawnRequest тело запроса POST /spawn
type SpawnRequest struct {
	EntityType string   `json:"entity_type" binding:"required"`
	Ground     []string `json:"ground,omitempty"`
}

func (rs *RestServer) handleListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Активные регионы", Data: rs.regions.Regions()})
}

func (rs *RestServer) handleActivate(c *gin.Context) {
	key := regionKey(c)
	existed := rs.regions.IsActive(key)
	if err := rs.regions.ActivateRegion(key); err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	c.JSON(status, GenericResponse{Success: true, Message: "Регион активен", Data: key})
}

func (rs *RestServer) handleUnload(c *gin.Context) {
	key := regionKey(c)
	if !rs.regions.UnloadRegion(key) {
		respondError(c, fmt.Errorf("unload region (%d, %d): %w", key.X, key.Y, world.ErrRegionNotActive))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Регион выгружен", Data: key})
}

func (rs *RestServer) handleRandomPosition(c *gin.Context) {
	key := regionKey(c)
	p, err := parsePredicates(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	_, span := rs.tracer.Start(c.Request.Context(), "navgrid.random_position",
		trace.WithAttributes(regionAttrs(key)...))
	defer span.End()

	pos, ok, err := rs.regions.GetRandomPosMatching(key, p)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("navgrid.found", ok))
	if !ok {
		respondError(c, world.ErrNoFreePosition)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Позиция найдена", Data: positionOf(pos)})
}

func (rs *RestServer) handleCheckpoint(c *gin.Context) {
	key := regionKey(c)
	from, to, err := parseFromTo(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	_, span := rs.tracer.Start(c.Request.Context(), "navgrid.checkpoint",
		trace.WithAttributes(regionAttrs(key)...))
	defer span.End()

	cp, clearWay, err := rs.regions.GetPathFoundNextCheckpoint(key, from, to)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("navgrid.clear_way", clearWay))
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Контрольная точка",
		Data:    CheckpointResponse{Checkpoint: positionOf(cp), ClearWay: clearWay},
	})
}

func (rs *RestServer) handleSetDirty(c *gin.Context) {
	if err := rs.regions.SetDirty(regionKey(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Занятость будет пересчитана"})
}

func (rs *RestServer) handleUseField(c *gin.Context) {
	var req UseFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	if err := rs.regions.UseFieldAt(regionKey(c), vec.Vec2Float{X: req.X, Y: req.Y}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Клетка занята"})
}

// handleSpawn публикует событие в шину, если она есть; иначе ставит сущность сразу
func (rs *RestServer) handleSpawn(c *gin.Context) {
	key := regionKey(c)
	var req SpawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	entityType, ok := entity.ParseEntityType(req.EntityType)
	if !ok {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неизвестный тип сущности: " + req.EntityType})
		return
	}
	ground, err := navgrid.ParseGrounds(req.Ground)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	if !rs.regions.IsActive(key) {
		respondError(c, fmt.Errorf("spawn in (%d, %d): %w", key.X, key.Y, world.ErrRegionNotActive))
		return
	}

	if bus := eventbus.Global(); bus != nil {
		env, err := world.NewPlacementEnvelope("rest_api", world.EventPlacementSpawn, world.PlacementEvent{
			EntityType: entityType.String(),
			Random:     true,
			Ground:     req.Ground,
			Region:     key,
		})
		if err == nil {
			err = bus.Publish(c.Request.Context(), env)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Событие отправлено", Data: gin.H{"event_id": env.ID}})
		return
	}

	e, err := rs.regions.SpawnEntity(key, entityType, rs.regions.SpawnPredicates(ground))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Сущность создана", Data: gin.H{
		"id":       e.ID,
		"type":     e.Type.String(),
		"position": positionOf(e.WorldPosition()),
	}})
}

// handleMap отдаёт ASCII-карту региона, сжатую gzip, если клиент это принимает
func (rs *RestServer) handleMap(c *gin.Context) {
	var rendered string
	if err := rs.regions.WithGrid(regionKey(c), func(g *navgrid.Grid) {
		rendered = g.Render(nil)
	}); err != nil {
		respondError(c, err)
		return
	}

	if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		c.String(http.StatusOK, rendered)
		return
	}

	c.Header("Content-Encoding", "gzip")
	c.Header("Vary", "Accept-Encoding")
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")

	zw := gzip.NewWriter(c.Writer)
	if _, err := zw.Write([]byte(rendered)); err != nil {
		_ = c.Error(err)
	}
	if err := zw.Close(); err != nil {
		_ = c.Error(err)
	}
}

func regionAttrs(key world.RegionKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("navgrid.region.x", key.X),
		attribute.Int("navgrid.region.y", key.Y),
	}
}

// parsePredicates разбирает water, slope_min, slope_max и ground из query
func parsePredicates(c *gin.Context) (navgrid.PlacementPredicates, error) {
	p := navgrid.PlacementPredicates{Slope: navgrid.AnySlope}

	switch strings.ToLower(c.Query("water")) {
	case "", "any", "either":
		p.Water = navgrid.WaterEither
	case "above":
		p.Water = navgrid.WaterAbove
	case "below":
		p.Water = navgrid.WaterBelow
	default:
		return p, errors.New("water: ожидается above, below или any")
	}

	var err error
	if p.Slope.Min, err = queryFloat(c, "slope_min", p.Slope.Min); err != nil {
		return p, err
	}
	if p.Slope.Max, err = queryFloat(c, "slope_max", p.Slope.Max); err != nil {
		return p, err
	}
	if p.Slope.Min > p.Slope.Max {
		return p, errors.New("slope_min больше slope_max")
	}

	if raw := c.Query("ground"); raw != "" {
		if p.Ground, err = navgrid.ParseGrounds(strings.Split(raw, ",")); err != nil {
			return p, err
		}
	}
	return p, nil
}

func parseFromTo(c *gin.Context) (vec.Vec2Float, vec.Vec2Float, error) {
	var vals [4]float64
	for i, name := range []string{"from_x", "from_y", "to_x", "to_y"} {
		raw, ok := c.GetQuery(name)
		if !ok {
			return vec.Vec2Float{}, vec.Vec2Float{}, fmt.Errorf("параметр %s обязателен", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return vec.Vec2Float{}, vec.Vec2Float{}, fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}
	return vec.Vec2Float{X: vals[0], Y: vals[1]}, vec.Vec2Float{X: vals[2], Y: vals[3]}, nil
}

func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
