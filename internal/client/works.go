package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/zidesign/catalog/types"
)

// Works is the HTTP conduit to the works endpoint. It satisfies the same
// repository contract as the server-side service.
type Works struct {
	transport
	url    string
	tokens TokenSource
}

func NewWorks(url string, httpClient *http.Client, tokens TokenSource) *Works {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &Works{transport: transport{http: httpClient}, url: url, tokens: tokens}
}

type createWorkRequest struct {
	types.WorkInput
	AuthorID   string `json:"author_id"`
	AuthorRole string `json:"author_role"`
}

type setStatusRequest struct {
	WorkID string       `json:"work_id"`
	Status types.Status `json:"status"`
}

type workEnvelope struct {
	Work types.Work `json:"work"`
}

type worksEnvelope struct {
	Works []types.Work `json:"works"`
}

func (c *Works) List(ctx context.Context, filter types.WorkFilter) ([]types.Work, error) {
	q := url.Values{}
	if filter.Status != types.StatusUnknown {
		q.Set("status", filter.Status.String())
	}
	if filter.Category != types.CategoryUnknown {
		q.Set("category", filter.Category.String())
	}
	if filter.AuthorID != "" {
		q.Set("author_id", filter.AuthorID)
	}
	target := c.url
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var out worksEnvelope
	if err := c.do(ctx, http.MethodGet, target, "", nil, &out); err != nil {
		return nil, err
	}
	if out.Works == nil {
		out.Works = []types.Work{}
	}
	return out.Works, nil
}

// Create submits a work. The server derives the author and role from
// the bearer token; author_id and author_role are sent for compatibility.
func (c *Works) Create(ctx context.Context, input types.WorkInput, actor types.User) (types.Work, error) {
	var out workEnvelope
	err := c.do(ctx, http.MethodPost, c.url, c.tokens(), createWorkRequest{
		WorkInput:  input,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role.String(),
	}, &out)
	return out.Work, err
}

func (c *Works) SetStatus(ctx context.Context, id string, status types.Status, _ types.User) (types.Work, error) {
	var out workEnvelope
	err := c.do(ctx, http.MethodPut, c.url, c.tokens(), setStatusRequest{WorkID: id, Status: status}, &out)
	return out.Work, err
}

func (c *Works) Delete(ctx context.Context, id string, _ types.User) error {
	return c.do(ctx, http.MethodDelete, c.url+"?"+url.Values{"id": {id}}.Encode(), c.tokens(), nil, nil)
}
