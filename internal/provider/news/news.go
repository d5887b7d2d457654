// Package news implements the rich retriever on top of a NewsAPI compatible
// search endpoint.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/okian/compintel/internal/domain/model"
	"github.com/okian/compintel/internal/provider"
)

const (
	defaultEndpoint    = "https://newsapi.org/v2/everything"
	defaultTimeout     = 15 * time.Second
	defaultConcurrency = 4
	defaultDays        = 7
	defaultPageSize    = 15
	maxPageSize        = 100
	maxBodyBytes       = 8 << 20
)

// ErrSearchFailed is returned when the search endpoint rejects a query.
var ErrSearchFailed = errors.New("news search failed")

// Config controls the news retriever.
type Config struct {
	APIKey      string
	Endpoint    string
	Timeout     time.Duration
	RetryMax    int
	Concurrency int
	HTTPClient  *http.Client
	Now         func() time.Time
}

// Retriever searches recent articles per competitor.
type Retriever struct {
	apiKey      string
	endpoint    string
	concurrency int
	http        *http.Client
	now         func() time.Time
}

// New builds a retriever. It fails with provider.ErrProviderUnavailable when
// no API key is configured.
func New(cfg Config) (*Retriever, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: news api key is not set", provider.ErrProviderUnavailable)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("%w: news endpoint: %v", provider.ErrProviderUnavailable, err)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = max(0, cfg.RetryMax)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		rc.HTTPClient.Timeout = timeout
	}

	return &Retriever{
		apiKey:      apiKey,
		endpoint:    endpoint,
		concurrency: concurrency,
		http:        rc.StandardClient(),
		now:         now,
	}, nil
}

// Variant implements provider.Named.
func (*Retriever) Variant() string { return provider.VariantRich }

// Retrieve runs one search per competitor, bounded by the configured
// concurrency, and keeps results in competitor order. Any failed search fails
// the whole retrieval.
func (r *Retriever) Retrieve(ctx context.Context, req model.Request) (provider.Retrieval, error) {
	comps := req.CompetitorNames()
	if len(comps) == 0 {
		return provider.Retrieval{}, nil
	}
	days := req.Config.SearchTimeframeDays
	if days <= 0 {
		days = defaultDays
	}
	pageSize := req.Config.MaxArticlesPerCompany
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)
	from := r.now().AddDate(0, 0, -days)

	results := make([][]model.RawItem, len(comps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, comp := range comps {
		g.Go(func() error {
			items, err := r.search(gctx, comp, req.Regions, from, pageSize)
			if err != nil {
				return fmt.Errorf("search %s: %w", comp, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return provider.Retrieval{}, err
	}

	var raw []model.RawItem
	for _, items := range results {
		raw = append(raw, items...)
	}
	return provider.Retrieval{Raw: raw, Clean: Clean(raw)}, nil
}

func (r *Retriever) search(ctx context.Context, comp string, regions []string, from time.Time, pageSize int) ([]model.RawItem, error) {
	q := url.Values{}
	q.Set("q", comp)
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", r.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || gjson.GetBytes(body, "status").String() == "error" {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", provider.ErrMalformedResponse)
	}

	articles := gjson.GetBytes(body, "articles").Array()
	items := make([]model.RawItem, 0, len(articles))
	for _, a := range articles {
		summary := a.Get("description").String()
		if summary == "" {
			summary = a.Get("content").String()
		}
		title := a.Get("title").String()
		items = append(items, model.RawItem{
			Title:     title,
			Summary:   summary,
			Company:   comp,
			Region:    detectRegion(title+" "+summary, regions),
			Published: a.Get("publishedAt").String(),
			Source:    a.Get("source.name").String(),
			Link:      a.Get("url").String(),
		})
	}
	return items, nil
}

// detectRegion returns the first requested region named in text, or "".
func detectRegion(text string, regions []string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, region := range regions {
		for _, f := range fields {
			if strings.EqualFold(f, region) {
				return region
			}
		}
	}
	return ""
}
