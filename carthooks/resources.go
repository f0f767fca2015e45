package carthooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/carthooks/sdk-go/transport"
)

// Item is a record in a Carthooks collection. Field content is
// collection-specific and passed through untouched.
type Item struct {
	ID     int64          `json:"id,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// User is the identity returned by the current-user lookup.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	TenantID int64  `json:"tenant_id,omitempty"`
}

// ListOptions narrows item listings.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

// GetItems lists items in a collection.
func (c *Client) GetItems(ctx context.Context, appID, collectionID int64, opts ListOptions) Result[[]Item] {
	return invokeJSON[[]Item](c, ctx, transport.Request{
		Method: http.MethodGet,
		Path:   itemsPath(appID, collectionID),
		Query:  opts.query(),
	})
}

// GetItem fetches a single item.
func (c *Client) GetItem(ctx context.Context, appID, collectionID, itemID int64) Result[*Item] {
	return invokeJSON[*Item](c, ctx, transport.Request{
		Method: http.MethodGet,
		Path:   itemPath(appID, collectionID, itemID),
	})
}

// CreateItem creates an item with the given field values.
func (c *Client) CreateItem(ctx context.Context, appID, collectionID int64, fields map[string]any) Result[*Item] {
	return invokeJSON[*Item](c, ctx, transport.Request{
		Method: http.MethodPost,
		Path:   itemsPath(appID, collectionID),
		Body:   Item{Fields: fields},
	})
}

// UpdateItem replaces an item's field values.
func (c *Client) UpdateItem(ctx context.Context, appID, collectionID, itemID int64, fields map[string]any) Result[*Item] {
	return invokeJSON[*Item](c, ctx, transport.Request{
		Method: http.MethodPut,
		Path:   itemPath(appID, collectionID, itemID),
		Body:   Item{Fields: fields},
	})
}

// DeleteItem removes an item. Data is true on success.
func (c *Client) DeleteItem(ctx context.Context, appID, collectionID, itemID int64) Result[bool] {
	res := invokeJSON[struct{}](c, ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   itemPath(appID, collectionID, itemID),
	})
	return Result[bool]{Success: res.Success, Data: res.Success, Error: res.Error, TraceID: res.TraceID}
}

func itemsPath(appID, collectionID int64) string {
	return fmt.Sprintf("/open/api/v1/apps/%d/collections/%d/items", appID, collectionID)
}

func itemPath(appID, collectionID, itemID int64) string {
	return fmt.Sprintf("%s/%d", itemsPath(appID, collectionID), itemID)
}

// envelope is the response wrapper used by the resource and user endpoints.
type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// invokeJSON runs one authenticated API call behind the freshness guard. A
// failed guard short-circuits: the underlying call is never attempted with a
// stale or absent token.
func invokeJSON[T any](c *Client, ctx context.Context, req transport.Request) Result[T] {
	bearer, err := c.bearer(ctx)
	if err != nil {
		return failed[T](err)
	}
	req.Bearer = bearer

	resp, err := c.transport.Invoke(ctx, req)
	if err != nil {
		return failed[T](err)
	}

	var env envelope[T]
	if !resp.OK() {
		_ = resp.Decode(&env)
		msg := http.StatusText(resp.StatusCode)
		if env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return Result[T]{
			Error:   fmt.Sprintf("carthooks: %s %s failed (status %d): %s", req.Method, req.Path, resp.StatusCode, msg),
			TraceID: pickTrace(env.TraceID, resp.TraceID),
		}
	}

	if err := resp.Decode(&env); err != nil {
		return failed[T](err)
	}
	return succeed(env.Data, pickTrace(env.TraceID, resp.TraceID))
}

func pickTrace(fromBody, fromHeader string) string {
	if fromBody != "" {
		return fromBody
	}
	return fromHeader
}
