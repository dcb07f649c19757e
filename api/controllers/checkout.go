package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Checkout places an order for the caller's cart. The request blocks for
// the processing delay; a client disconnect cancels it without clearing.
func Checkout(svc checkout.Service, carts CartProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receipt, err := svc.Checkout(r.Context(), cartFor(r, carts))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNotice(w, receipt, receipt.Message)
	}
}
