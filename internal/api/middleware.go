package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/annel0/navgrid/internal/auth"
	"github.com/annel0/navgrid/internal/world"
	"github.com/gin-gonic/gin"
)

const (
	regionKeyCtx = "region_key"
	claimsCtx    = "auth_claims"
)

// corsMiddleware разрешает запросы отладочных клиентов с любых источников
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authMiddleware требует Bearer токен; adminOnly дополнительно требует is_admin.
// Без выпускателя токенов пропускает всё.
func authMiddleware(tokens *auth.TokenIssuer, adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Требуется заголовок Authorization: Bearer <token>",
			})
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{Success: false, Message: err.Error()})
			return
		}
		if adminOnly && !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Операция доступна только администратору",
			})
			return
		}

		c.Set(claimsCtx, claims)
		c.Next()
	}
}

// regionKeyMiddleware разбирает :rx/:ry маршрута в world.RegionKey
func regionKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rx, errX := strconv.Atoi(c.Param("rx"))
		ry, errY := strconv.Atoi(c.Param("ry"))
		if errX != nil || errY != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Координаты региона должны быть целыми числами",
			})
			return
		}
		c.Set(regionKeyCtx, world.RegionKey{X: rx, Y: ry})
		c.Next()
	}
}

func regionKey(c *gin.Context) world.RegionKey {
	return c.MustGet(regionKeyCtx).(world.RegionKey)
}

// respondError переводит ошибки менеджера регионов в HTTP-статусы
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrRegionNotActive), errors.Is(err, world.ErrUnknownEntity):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrNoFreePosition):
		status = http.StatusConflict
	case errors.Is(err, world.ErrEntityExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}
