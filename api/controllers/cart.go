package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/currency"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartProvider hands out the caller's cart manager.
type CartProvider interface {
	Get(ctx context.Context, owner string) *cart.Manager
}

type productFetcher interface {
	FetchProduct(ctx context.Context, id int) (catalog.Product, error)
}

type addItemRequest struct {
	ProductID int  `json:"product_id" validate:"required,gt=0"`
	Quantity  *int `json:"quantity" validate:"omitempty,gte=1"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type cartLineResponse struct {
	cart.Line
	LineTotal          string `json:"line_total"`
	LineTotalFormatted string `json:"line_total_formatted"`
}

type cartResponse struct {
	Lines             []cartLineResponse `json:"lines"`
	ItemCount         int                `json:"item_count"`
	Total             string             `json:"total"`
	TotalFormatted    string             `json:"total_formatted"`
	TotalINRFormatted string             `json:"total_inr_formatted"`
	Revision          uint64             `json:"revision"`
}

func newCartResponse(snap cart.Snapshot, conv currency.Converter) cartResponse {
	out := cartResponse{
		Lines:             make([]cartLineResponse, 0, len(snap.Lines)),
		ItemCount:         snap.ItemCount,
		Total:             snap.Total.StringFixed(2),
		TotalFormatted:    conv.FormatUSD(snap.Total),
		TotalINRFormatted: conv.FormatUSDAsINR(snap.Total),
		Revision:          snap.Revision,
	}
	for _, l := range snap.Lines {
		sub := l.Subtotal()
		out.Lines = append(out.Lines, cartLineResponse{
			Line:               l,
			LineTotal:          sub.StringFixed(2),
			LineTotalFormatted: conv.FormatUSD(sub),
		})
	}
	return out
}

func cartFor(r *http.Request, carts CartProvider) *cart.Manager {
	return carts.Get(r.Context(), middleware.UserFromContext(r.Context()))
}

// writeMutation answers a cart mutation. A failed snapshot write does not
// fail the request once the in-memory cart has changed.
func writeMutation(w http.ResponseWriter, r *http.Request, logg *logger.Logger, m *cart.Manager, conv currency.Converter, ev cart.Event, err error) {
	if err != nil {
		if !(ev.Changed() && pkgerrors.IsCode(err, pkgerrors.CodeDependency)) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "cart.persist_degraded")
		}
	}
	responses.WriteNotice(w, newCartResponse(m.Snapshot(), conv), ev.Message())
}

func CartGet(carts CartProvider, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(cartFor(r, carts).Snapshot(), conv))
	}
}

// CartAddItem fetches the product from the catalog and adds its snapshot.
func CartAddItem(carts CartProvider, products productFetcher, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.FetchProduct(r.Context(), req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m := cartFor(r, carts)
		var ev cart.Event
		if req.Quantity != nil {
			ev, err = m.AddItem(r.Context(), product, *req.Quantity)
		} else {
			ev, err = m.AddItem(r.Context(), product)
		}
		writeMutation(w, r, logg, m, conv, ev, err)
	}
}

// CartUpdateItem sets an absolute quantity; zero or less removes the line.
func CartUpdateItem(carts CartProvider, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m := cartFor(r, carts)
		ev, err := m.UpdateQuantity(r.Context(), id, *req.Quantity)
		writeMutation(w, r, logg, m, conv, ev, err)
	}
}

func CartRemoveItem(carts CartProvider, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m := cartFor(r, carts)
		ev, err := m.RemoveItem(r.Context(), id)
		writeMutation(w, r, logg, m, conv, ev, err)
	}
}

func CartClear(carts CartProvider, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := cartFor(r, carts)
		ev, err := m.ClearCart(r.Context())
		writeMutation(w, r, logg, m, conv, ev, err)
	}
}
