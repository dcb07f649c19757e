package cart

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/logger"
)

// Notifier receives every applied cart event.
type Notifier interface {
	Notify(ctx context.Context, key string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, key string, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, key string, ev Event) {
	f(ctx, key, ev)
}

// LogNotifier writes announced events to the structured log.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, key string, ev Event) {
	if n == nil || n.logg == nil {
		return
	}
	ctx = n.logg.WithCartKey(ctx, key)
	ctx = n.logg.WithFields(ctx, map[string]any{
		"event":      string(ev.Kind),
		"product_id": ev.ProductID,
		"quantity":   ev.Quantity,
	})
	if msg := ev.Message(); msg != "" {
		n.logg.Info(n.logg.WithField(ctx, "notice", msg), "cart.notice")
		return
	}
	n.logg.Debug(ctx, "cart.event")
}
