package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	DefaultBaseURL = "https://fakestoreapi.com"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// Catalog is the read surface the HTTP layer and checkout depend on.
type Catalog interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	FetchProduct(ctx context.Context, id int) (Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
	FetchProductsByCategory(ctx context.Context, category string) ([]Product, error)
}

// Authenticator exchanges credentials for an upstream token.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (string, error)
}

// Metrics is the subset of pkg/metrics used by the client.
type Metrics interface {
	ObserveCatalogRequest(endpoint, outcome string, duration time.Duration)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
	Metrics Metrics
	Logger  *logger.Logger
}

// Client talks to a fakestoreapi compatible catalog over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	metrics Metrics
	logg    *logger.Logger
}

func NewClient(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url %q", raw)
	}

	httpClient := opts.HTTP
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	return &Client{baseURL: u, http: httpClient, metrics: opts.Metrics, logg: logg}, nil
}

func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.getJSON(ctx, "products", "/products", &out); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to fetch products")
	}
	return out, nil
}

func (c *Client) FetchProduct(ctx context.Context, id int) (Product, error) {
	var out Product
	if err := c.getJSON(ctx, "product", "/products/"+strconv.Itoa(id), &out); err != nil {
		return Product{}, errors.Wrap(errors.CodeDependency, err, fmt.Sprintf("failed to fetch product with id: %d", id))
	}
	// the upstream answers unknown ids with an empty body or null
	if out.ID == 0 {
		return Product{}, errors.Newf(errors.CodeDependency, "failed to fetch product with id: %d", id)
	}
	return out, nil
}

func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "categories", "/products/categories", &out); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to fetch categories")
	}
	return out, nil
}

func (c *Client) FetchProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var out []Product
	path := "/products/category/" + url.PathEscape(category)
	if err := c.getJSON(ctx, "products_by_category", path, &out); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, fmt.Sprintf("failed to fetch products in category: %s", category))
	}
	return out, nil
}

// Login posts the credentials upstream. A 4xx answer means the credentials
// were rejected; anything else is an upstream failure.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "encode credentials")
	}

	resp, err := c.do(ctx, "login", http.MethodPost, "/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "login failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", errors.New(errors.CodeUnauthorized, "login failed")
	}
	var out loginResponse
	if err := decode(resp, &out); err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "login failed")
	}
	if out.Token == "" {
		return "", errors.New(errors.CodeDependency, "login failed: empty token")
	}
	return out.Token, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, dst any) error {
	resp, err := c.do(ctx, endpoint, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, dst)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body io.Reader) (*http.Response, error) {
	// path is already escaped and joins onto any prefix in the base url
	u := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case resp.StatusCode >= 300:
		outcome = "status_" + strconv.Itoa(resp.StatusCode)
	}
	if c.metrics != nil {
		c.metrics.ObserveCatalogRequest(endpoint, outcome, time.Since(start))
	}
	if err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		}), "catalog.request_failed")
		return nil, err
	}
	return resp, nil
}

func decode(resp *http.Response, dst any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
