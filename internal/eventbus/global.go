package eventbus

import "context"

var globalBus EventBus

// Init устанавливает глобальную шину; nil отключает публикацию.
func Init(bus EventBus) { globalBus = bus }

// Global возвращает глобальную шину или nil.
func Global() EventBus { return globalBus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
// Без шины событие молча отбрасывается.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}

// Closer реализуется шинами, держащими соединение (JetStreamBus).
type Closer interface {
	Close() error
}

// Close закрывает глобальную шину, если она это поддерживает, и сбрасывает её.
func Close() error {
	bus := globalBus
	globalBus = nil
	if c, ok := bus.(Closer); ok {
		return c.Close()
	}
	return nil
}
