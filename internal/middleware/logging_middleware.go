package middleware

import (
	"strings"
	"time"

	"github.com/annel0/navgrid/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader заголовок ответа с trace-ID запроса
const TraceHeader = "X-Trace-ID"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Служебные пути (health, metrics) пишутся на уровне Debug.
type RequestLogger struct {
	quietPrefixes []string
}

func NewRequestLogger(quietPrefixes ...string) *RequestLogger {
	if len(quietPrefixes) == 0 {
		quietPrefixes = []string{"/health", "/metrics"}
	}
	return &RequestLogger{quietPrefixes: quietPrefixes}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id берём из OpenTelemetry, если спан уже создан
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		switch {
		case status >= 500:
			logging.Error("[HTTP] %s %s %d %s ip=%s trace=%s errors=%s", method, path, status, latency, c.ClientIP(), traceID, c.Errors.String())
		case rl.isQuiet(path):
			logging.Debug("[HTTP] %s %s %d %s", method, path, status, latency)
		default:
			logging.Info("[HTTP] %s %s %d %s ip=%s trace=%s", method, path, status, latency, c.ClientIP(), traceID)
		}
	}
}

func (rl *RequestLogger) isQuiet(path string) bool {
	for _, p := range rl.quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
