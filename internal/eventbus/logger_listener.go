package eventbus

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/annel0/endless-terrain/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus, logger *logging.Logger) (Subscription, error) {
	logger = logging.OrDefault(logger)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logger.Debug("[EventBus] %s %s src=%s size=%s", ev.ID, ev.EventType, ev.Source, humanize.Bytes(uint64(len(ev.Payload))))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
