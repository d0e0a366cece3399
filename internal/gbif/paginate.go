package gbif

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Page is one page of a GBIF paginated response.
type Page struct {
	Offset       int               `json:"offset"`
	Limit        int               `json:"limit"`
	EndOfRecords bool              `json:"endOfRecords"`
	Count        int64             `json:"count"`
	Results      []json.RawMessage `json:"results"`
}

// Pager walks a paginated GBIF endpoint one page at a time with increasing
// offsets. It is lazy and finite: iteration ends when a page reports
// endOfRecords or comes back empty. A fresh Pager restarts from offset 0.
type Pager struct {
	client   *Client
	path     string
	params   url.Values
	pageSize int
	offset   int
	done     bool
}

// Paginate creates a Pager over path with the given base parameters,
// fetching pageSize results per request.
func (c *Client) Paginate(path string, params url.Values, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = 20
	}
	base := url.Values{}
	for k, vs := range params {
		base[k] = append([]string(nil), vs...)
	}
	return &Pager{
		client:   c,
		path:     path,
		params:   base,
		pageSize: pageSize,
	}
}

// Next fetches the next page of results. It returns ok=false once the
// sequence is exhausted; errors from the underlying request end iteration.
func (p *Pager) Next(ctx context.Context) (results []json.RawMessage, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}

	params := url.Values{}
	for k, vs := range p.params {
		params[k] = vs
	}
	params.Set("limit", strconv.Itoa(p.pageSize))
	params.Set("offset", strconv.Itoa(p.offset))

	payload, err := p.client.Get(ctx, p.path, params)
	if err != nil {
		p.done = true
		return nil, false, err
	}

	var page Page
	if err := json.Unmarshal(payload, &page); err != nil {
		p.done = true
		return nil, false, err
	}

	if len(page.Results) == 0 {
		p.done = true
		return nil, false, nil
	}

	p.offset += len(page.Results)
	if page.EndOfRecords {
		p.done = true
	}
	return page.Results, true, nil
}
