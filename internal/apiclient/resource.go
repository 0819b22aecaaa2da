package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/dashboard"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/users"
)

const listPageSize = 200

// Resource is the CRUD surface of one /api collection.
type Resource[T any] struct {
	client *Client
	path   string
	query  url.Values
}

// NewResource binds a collection such as "/api/quotations".
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

// Where returns a copy of r whose List sends the given filters.
func (r *Resource[T]) Where(query url.Values) *Resource[T] {
	cp := *r
	cp.query = query
	return &cp
}

// Path is the collection path.
func (r *Resource[T]) Path() string { return r.path }

// List walks every page of the collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range r.query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(listPageSize))

		var body httpx.ListBody[T]
		if err := r.client.do(ctx, http.MethodGet, r.path+"?"+q.Encode(), nil, &body); err != nil {
			return nil, err
		}
		out = append(out, body.Data...)
		if page >= body.Pagination.TotalPages || len(body.Data) == 0 {
			return out, nil
		}
	}
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodGet, r.item(id), nil, &out)
	return out, err
}

func (r *Resource[T]) Create(ctx context.Context, req any) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.path, req, &out)
	return out, err
}

func (r *Resource[T]) Update(ctx context.Context, id int64, req any) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPut, r.item(id), req, &out)
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.item(id), nil, nil)
}

func (r *Resource[T]) item(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}

// Typed accessors for each collection.

func (c *Client) Clients() *Resource[clients.Client] {
	return NewResource[clients.Client](c, "/api/clients")
}

func (c *Client) Equipment() *Resource[equipment.Equipment] {
	return NewResource[equipment.Equipment](c, "/api/equipment")
}

func (c *Client) Users() *Resource[users.User] {
	return NewResource[users.User](c, "/api/users")
}

func (c *Client) Quotations() *Resource[quotations.Quotation] {
	return NewResource[quotations.Quotation](c, "/api/quotations")
}

func (c *Client) ServiceOrders() *Resource[serviceorders.ServiceOrder] {
	return NewResource[serviceorders.ServiceOrder](c, "/api/service-orders")
}

func (c *Client) PurchaseOrders() *Resource[purchaseorders.PurchaseOrder] {
	return NewResource[purchaseorders.PurchaseOrder](c, "/api/purchase-orders")
}

// RespondQuotation posts a client decision for a sent quotation.
func (c *Client) RespondQuotation(ctx context.Context, id int64, req quotations.RespondRequest) (quotations.Quotation, error) {
	var out quotations.Quotation
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/quotations/%d/respond", id), req, &out)
	return out, err
}

// Dashboard fetches the summary for the last months months.
func (c *Client) Dashboard(ctx context.Context, months int) (dashboard.Summary, error) {
	var out dashboard.Summary
	err := c.do(ctx, http.MethodGet, "/api/dashboard?months="+strconv.Itoa(months), nil, &out)
	return out, err
}
