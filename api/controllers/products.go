package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/currency"
	"github.com/angelmondragon/storefront/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type productResponse struct {
	catalog.Product
	PriceFormatted    string `json:"price_formatted"`
	PriceINRFormatted string `json:"price_inr_formatted"`
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	Categories []string          `json:"categories"`
	Count      int               `json:"count"`
}

func newProductResponse(p catalog.Product, conv currency.Converter) productResponse {
	return productResponse{
		Product:           p,
		PriceFormatted:    conv.FormatUSD(p.Price),
		PriceINRFormatted: conv.FormatUSDAsINR(p.Price),
	}
}

// ProductList returns the catalog, optionally narrowed by ?category= and
// ?search=, together with the category list.
func ProductList(cat catalog.Catalog, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := validators.ParseQueryString(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		search, err := validators.ParseQueryString(r, "search")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			products   []catalog.Product
			categories []string
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			if category != "" {
				products, err = cat.FetchProductsByCategory(ctx, category)
			} else {
				products, err = cat.FetchProducts(ctx)
			}
			return err
		})
		g.Go(func() error {
			var err error
			categories, err = cat.FetchCategories(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filtered := catalog.Filter(products, category, search)
		out := productListResponse{
			Products:   make([]productResponse, 0, len(filtered)),
			Categories: categories,
			Count:      len(filtered),
		}
		for _, p := range filtered {
			out.Products = append(out.Products, newProductResponse(p, conv))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductDetail returns a single product.
func ProductDetail(cat catalog.Catalog, conv currency.Converter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := cat.FetchProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(p, conv))
	}
}

// CategoryList returns the catalog categories.
func CategoryList(cat catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := cat.FetchCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}
