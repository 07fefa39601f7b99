package hubspot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpclient "tuition-checkout/internal/common/http"
)

// ErrNotFound is returned when the CRM has no record for the requested key.
var ErrNotFound = errors.New("hubspot: not found")

// maxAssociationPages caps association paging for a single contact.
const maxAssociationPages = 20

// DealProperties names the CRM properties read for each deal.
type DealProperties struct {
	Name            string
	TuitionAmount   string
	TotalAmountPaid string
	PaymentSlots    [5]string
}

// List returns the property names in request order.
func (p DealProperties) List() []string {
	out := []string{p.Name, p.TuitionAmount, p.TotalAmountPaid}
	for _, s := range p.PaymentSlots {
		out = append(out, s)
	}
	return out
}

// Deal is a CRM deal with raw property values.
type Deal struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Observer receives the duration of every CRM call.
type Observer func(operation string, elapsed time.Duration)

type Client struct {
	api      *httpclient.Client
	props    DealProperties
	observe  Observer
	hasToken bool
}

type Option func(*Client)

// WithObserver installs a per-call duration hook.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

func NewClient(baseURL, accessToken string, timeout time.Duration, props DealProperties, opts ...Option) *Client {
	c := &Client{
		api:      httpclient.NewAPIClient(strings.TrimRight(baseURL, "/"), accessToken, timeout),
		props:    props,
		hasToken: accessToken != "",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool {
	return c != nil && c.hasToken
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// SearchContactIDByEmail returns the ID of the first contact whose email
// equals the given address.
func (c *Client) SearchContactIDByEmail(ctx context.Context, email string) (string, error) {
	defer c.track("search_contact", time.Now())

	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: []string{"email"},
		Limit:      1,
	}

	var resp searchResponse
	if _, err := c.api.DoJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		return "", fmt.Errorf("failed to search contacts: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", ErrNotFound
	}
	return resp.Results[0].ID, nil
}

type associationsResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
	Paging *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// ListDealIDsForContact returns the IDs of every deal associated with the
// contact, following pagination.
func (c *Client) ListDealIDsForContact(ctx context.Context, contactID string) ([]string, error) {
	defer c.track("list_associations", time.Now())

	var ids []string
	after := ""
	for page := 0; page < maxAssociationPages; page++ {
		path := fmt.Sprintf("/crm/v3/objects/contacts/%s/associations/deals", url.PathEscape(contactID))
		if after != "" {
			path += "?after=" + url.QueryEscape(after)
		}

		var resp associationsResponse
		status, err := c.api.DoJSON(ctx, http.MethodGet, path, nil, &resp)
		if status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list deal associations: %w", err)
		}

		for _, r := range resp.Results {
			ids = append(ids, r.ID)
		}
		if resp.Paging == nil || resp.Paging.Next == nil || resp.Paging.Next.After == "" {
			break
		}
		after = resp.Paging.Next.After
	}
	return ids, nil
}

// GetDeal reads a single deal with the configured properties.
func (c *Client) GetDeal(ctx context.Context, dealID string) (*Deal, error) {
	defer c.track("get_deal", time.Now())

	q := url.Values{}
	q.Set("properties", strings.Join(c.props.List(), ","))
	path := fmt.Sprintf("/crm/v3/objects/deals/%s?%s", url.PathEscape(dealID), q.Encode())

	var deal Deal
	status, err := c.api.DoJSON(ctx, http.MethodGet, path, nil, &deal)
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return &deal, nil
}

type batchReadRequest struct {
	Properties []string      `json:"properties"`
	Inputs     []batchInputs `json:"inputs"`
}

type batchInputs struct {
	ID string `json:"id"`
}

type batchReadResponse struct {
	Status  string `json:"status"`
	Results []Deal `json:"results"`
}

// BatchReadDeals reads several deals at once. Deals the CRM could not return
// are omitted; 207 partial responses are accepted.
func (c *Client) BatchReadDeals(ctx context.Context, ids []string) ([]Deal, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer c.track("batch_read_deals", time.Now())

	req := batchReadRequest{Properties: c.props.List()}
	for _, id := range ids {
		req.Inputs = append(req.Inputs, batchInputs{ID: id})
	}

	var resp batchReadResponse
	if _, err := c.api.DoJSON(ctx, http.MethodPost, "/crm/v3/objects/deals/batch/read", req, &resp,
		http.StatusOK, http.StatusMultiStatus); err != nil {
		return nil, fmt.Errorf("failed to batch read deals: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) track(operation string, start time.Time) {
	if c.observe != nil {
		c.observe(operation, time.Since(start))
	}
}
