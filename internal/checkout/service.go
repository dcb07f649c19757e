package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/currency"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultDelay = 1500 * time.Millisecond

	MessagePlaced = "Order placed successfully!"
	messageEmpty  = "Your cart is empty"
)

// Cart is the slice of cart.Manager checkout needs.
type Cart interface {
	Snapshot() cart.Snapshot
	ClearIfRevision(ctx context.Context, rev uint64) (cart.Event, error)
}

type Metrics interface {
	IncCheckout(outcome string)
}

// Receipt summarizes a placed order.
type Receipt struct {
	OrderID           uuid.UUID       `json:"order_id"`
	ItemCount         int             `json:"item_count"`
	Lines             []cart.Line     `json:"lines"`
	TotalUSD          decimal.Decimal `json:"total_usd"`
	TotalINR          decimal.Decimal `json:"total_inr"`
	TotalUSDFormatted string          `json:"total_usd_formatted"`
	TotalINRFormatted string          `json:"total_inr_formatted"`
	PlacedAt          time.Time       `json:"placed_at"`
	Message           string          `json:"message"`
}

// Service places orders for the current cart contents.
type Service interface {
	Checkout(ctx context.Context, c Cart) (*Receipt, error)
}

type Options struct {
	Converter currency.Converter
	Delay     time.Duration
	Metrics   Metrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	converter currency.Converter
	delay     time.Duration
	metrics   Metrics
	logg      *logger.Logger
	now       func() time.Time
	wait      func(ctx context.Context, d time.Duration) error
}

func NewService(opts Options) (Service, error) {
	if opts.Delay < 0 {
		return nil, fmt.Errorf("checkout delay must not be negative")
	}
	svc := &service{
		converter: opts.Converter,
		delay:     opts.Delay,
		metrics:   opts.Metrics,
		logg:      opts.Logger,
		now:       opts.Now,
		wait:      sleep,
	}
	if svc.converter.Rate().IsZero() {
		svc.converter = currency.NewConverter(currency.DefaultUSDToINRRate, 0)
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Checkout rejects an empty cart, waits out the processing delay, then clears
// the cart only if nothing changed it in the meantime.
func (s *service) Checkout(ctx context.Context, c Cart) (*Receipt, error) {
	snap := c.Snapshot()
	if len(snap.Lines) == 0 {
		s.count("empty")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, messageEmpty)
	}

	orderID := uuid.New()
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"item_count": snap.ItemCount,
		"revision":   snap.Revision,
	})
	s.logg.Info(ctx, "checkout.started")

	if err := s.wait(ctx, s.delay); err != nil {
		s.count("canceled")
		s.logg.Warn(ctx, "checkout.canceled")
		return nil, pkgerrors.Wrap(pkgerrors.CodeCanceled, err, "checkout canceled")
	}

	if _, err := c.ClearIfRevision(ctx, snap.Revision); err != nil {
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			s.count("conflict")
			s.logg.Warn(ctx, "checkout.cart_changed")
			return nil, err
		case pkgerrors.IsCode(err, pkgerrors.CodeDependency):
			// cleared in memory; the snapshot write is retried on flush
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.clear_not_persisted")
		default:
			s.count("failed")
			return nil, err
		}
	}

	totalINR := s.converter.Convert(snap.Total)
	receipt := &Receipt{
		OrderID:           orderID,
		ItemCount:         snap.ItemCount,
		Lines:             snap.Lines,
		TotalUSD:          snap.Total,
		TotalINR:          totalINR,
		TotalUSDFormatted: s.converter.FormatUSD(snap.Total),
		TotalINRFormatted: s.converter.FormatINR(totalINR),
		PlacedAt:          s.now().UTC(),
		Message:           MessagePlaced,
	}
	s.count("placed")
	s.logg.Info(s.logg.WithField(ctx, "total_usd", snap.Total.String()), "checkout.placed")
	return receipt, nil
}

func (s *service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(outcome)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
