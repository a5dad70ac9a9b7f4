package cligen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/speakeasy-api/jsonpath/pkg/jsonpath"
	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/internal/httpclient"
	"github.com/tarrence/oascli/internal/layout"
)

const defaultMaxPages = 1000

// pager walks the pages of one list operation using the parameter and response
// names from the layout.
type pager struct {
	cfg   *layout.Pagination
	items *jsonpath.JSONPath
	next  *jsonpath.JSONPath

	maxCount int
	maxPages int
	sleep    time.Duration
}

type paginationResult struct {
	Items []any
	Pages int

	LastStatus  int
	LastHeaders http.Header
}

type fetchFunc func(endpoint string, query url.Values) (*httpclient.Result, error)

func newPager(cfg *layout.Pagination) (*pager, error) {
	if cfg == nil {
		cfg = &layout.Pagination{}
	}
	p := &pager{cfg: cfg, maxPages: defaultMaxPages}
	var err error
	if cfg.ItemProperty != "" {
		if p.items, err = jsonpath.NewPath(propertyPath(cfg.ItemProperty)); err != nil {
			return nil, fmt.Errorf("item property %q: %w", cfg.ItemProperty, err)
		}
	}
	if cfg.NextProperty != "" {
		if p.next, err = jsonpath.NewPath(propertyPath(cfg.NextProperty)); err != nil {
			return nil, fmt.Errorf("next property %q: %w", cfg.NextProperty, err)
		}
	}
	return p, nil
}

// propertyPath turns a dotted property name into a JSONPath. Names that already
// start with "$" are used as they are.
func propertyPath(prop string) string {
	if strings.HasPrefix(prop, "$") {
		return prop
	}
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(prop, ".") {
		fmt.Fprintf(&b, "['%s']", strings.ReplaceAll(seg, "'", `\'`))
	}
	return b.String()
}

// pages reports whether more than one request can be made at all.
func (p *pager) pages() bool {
	c := p.cfg
	return c.PageStart != "" || c.ItemStart != "" || c.NextHeader != "" || c.NextProperty != ""
}

// fetchAll requests pages until a short or empty page, the end of the next links,
// or the item limit. The page and item counters start at the values the user gave,
// or zero.
func (p *pager) fetchAll(ctx context.Context, endpoint string, initialQuery url.Values, fetch fetchFunc) (*paginationResult, error) {
	q := cloneValues(initialQuery)
	c := p.cfg

	pageSize := intParam(q, c.PageSize)
	if p.maxCount > 0 && pageSize > p.maxCount {
		pageSize = p.maxCount
	}
	if c.PageSize != "" && pageSize > 0 {
		q.Set(c.PageSize, strconv.Itoa(pageSize))
	}
	page := intParam(q, c.PageStart)
	offset := intParam(q, c.ItemStart)

	res := &paginationResult{}
	for {
		if q != nil && c.PageStart != "" {
			q.Set(c.PageStart, strconv.Itoa(page))
		}
		if q != nil && c.ItemStart != "" {
			q.Set(c.ItemStart, strconv.Itoa(offset))
		}

		r, err := fetch(endpoint, q)
		if err != nil {
			return nil, err
		}
		res.LastStatus = r.Status
		res.LastHeaders = r.Headers
		res.Pages++

		doc, err := decodeJSONNode(r.Body)
		if err != nil {
			return nil, err
		}
		items, err := p.selectItems(doc)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, items...)
		page++
		offset += len(items)

		switch {
		case len(items) == 0:
			return res.truncate(p.maxCount), nil
		case pageSize > 0 && len(items) < pageSize:
			return res.truncate(p.maxCount), nil
		case p.maxCount > 0 && len(res.Items) >= p.maxCount:
			return res.truncate(p.maxCount), nil
		case !p.pages():
			return res, nil
		}

		if c.NextHeader != "" || c.NextProperty != "" {
			next := p.nextURL(r.Headers, doc)
			if next == "" {
				return res.truncate(p.maxCount), nil
			}
			endpoint, q, err = followNext(endpoint, next, q)
			if err != nil {
				return nil, err
			}
		}

		if p.maxPages > 0 && res.Pages >= p.maxPages {
			return res, fmt.Errorf("pagination exceeded --%s=%d", flagMaxPages, p.maxPages)
		}
		if p.sleep > 0 {
			select {
			case <-time.After(p.sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

func (r *paginationResult) truncate(limit int) *paginationResult {
	if limit > 0 && len(r.Items) > limit {
		r.Items = r.Items[:limit]
	}
	return r
}

// decodeJSONNode parses a JSON response into a YAML node tree, which keeps number
// literals intact for the JSONPath queries.
func decodeJSONNode(body []byte) (*yaml.Node, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse JSON response: %w", err)
	}
	return &doc, nil
}

func (p *pager) selectItems(doc *yaml.Node) ([]any, error) {
	var nodes []*yaml.Node
	if p.items == nil {
		nodes = doc.Content
	} else {
		nodes = p.items.Query(doc)
	}
	if len(nodes) == 1 && nodes[0].Kind == yaml.SequenceNode {
		nodes = nodes[0].Content
	} else if p.items == nil {
		return nil, fmt.Errorf("response is not a list; set %s in the layout", layout.ItemProperty)
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *pager) nextURL(h http.Header, doc *yaml.Node) string {
	if p.cfg.NextHeader != "" {
		v := h.Get(p.cfg.NextHeader)
		if strings.EqualFold(p.cfg.NextHeader, "Link") {
			return linkNext(v)
		}
		return strings.TrimSpace(v)
	}
	for _, n := range p.next.Query(doc) {
		if n.Kind == yaml.ScalarNode && n.Tag != "!!null" {
			return strings.TrimSpace(n.Value)
		}
	}
	return ""
}

// linkNext returns the rel="next" target of an RFC 8288 Link header.
func linkNext(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, attrs, ok := strings.Cut(strings.TrimSpace(link), ";")
		if !ok {
			continue
		}
		for _, p := range strings.Split(attrs, ";") {
			k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
			if strings.EqualFold(k, "rel") && strings.Trim(v, `"`) == "next" {
				return strings.Trim(strings.TrimSpace(target), "<>")
			}
		}
	}
	return ""
}

// followNext resolves next against the current endpoint. A next URL that carries
// its own query is used as it is; otherwise the current query is kept.
func followNext(current, next string, q url.Values) (string, url.Values, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", nil, err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", nil, fmt.Errorf("next page URL %q: %w", next, err)
	}
	u := base.ResolveReference(ref)
	if u.RawQuery != "" {
		return u.String(), nil, nil
	}
	return u.String(), q, nil
}

func intParam(q url.Values, name string) int {
	if name == "" {
		return 0
	}
	i, err := strconv.Atoi(q.Get(name))
	if err != nil || i < 0 {
		return 0
	}
	return i
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vv := range v {
		out[k] = append([]string(nil), vv...)
	}
	return out
}
