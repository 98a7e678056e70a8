package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/annel0/navgrid/internal/logging"
)

// payloadFields поля полезной нагрузки размещения, которые попадают в лог
var payloadFields = []string{"entity_id", "entity_type", "region", "x", "y", "random", "ground"}

// StartLoggingListener подписывается на события types (все, если пусто) и пишет
// их в log с разобранными полями размещения. nil log означает глобальный логгер.
func StartLoggingListener(ctx context.Context, bus EventBus, log *logging.Logger, types ...string) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{Types: types}, func(ctx context.Context, ev *Envelope) {
		line := fmt.Sprintf("%s %s src=%s prio=%d %s", ev.ID, ev.EventType, ev.Source, ev.Priority, describePayload(ev.Payload))
		if log != nil {
			log.Debug("%s", line)
			return
		}
		logging.Debug("%s", line)
	})
	if err != nil {
		return nil, err
	}
	logging.Info("Журнал событий шины подписан (типы: %v)", types)
	return sub, nil
}

// describePayload кратко описывает JSON-объект; прочие данные показываются размером
func describePayload(payload []byte) string {
	var obj map[string]json.RawMessage
	if len(payload) == 0 || json.Unmarshal(payload, &obj) != nil {
		return fmt.Sprintf("size=%dB", len(payload))
	}

	parts := make([]string, 0, len(payloadFields))
	for _, name := range payloadFields {
		if raw, ok := obj[name]; ok {
			parts = append(parts, name+"="+string(raw))
			delete(obj, name)
		}
	}
	if len(obj) > 0 {
		rest := make([]string, 0, len(obj))
		for name := range obj {
			rest = append(rest, name)
		}
		sort.Strings(rest)
		parts = append(parts, "extra="+strings.Join(rest, ","))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return strings.Join(parts, " ")
}
