package shopping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/prometheus"
)

const (
	defaultBaseURL    = "https://serpapi.com/search"
	requestTimeout    = 30 * time.Second
	throttleRetryWait = 2 * time.Second
)

// RawProduct is one item of a google_shopping response, before the
// orchestrator maps it onto a domain.Product.
type RawProduct struct {
	Position          int     `json:"position"`
	ProductID         string  `json:"product_id"`
	Title             string  `json:"title"`
	Snippet           string  `json:"snippet"`
	Price             string  `json:"price"`
	ExtractedPrice    float64 `json:"extracted_price"`
	ExtractedOldPrice float64 `json:"extracted_old_price"`
	Thumbnail         string  `json:"thumbnail"`
	Source            string  `json:"source"`
	Link              string  `json:"link"`
	ProductLink       string  `json:"product_link"`
	SourceLink        string  `json:"source_link"`
}

type searchResponse struct {
	Error           string       `json:"error"`
	ShoppingResults []RawProduct `json:"shopping_results"`
}

//go:generate mockery --name=Searcher --dir=. --output=./mocks --filename=searcher_mock.go --case=underscore --with-expecter

// Searcher is the shopping-search collaborator contract consumed by the
// orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string, resultCount int) ([]RawProduct, error)
}

type client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	sf         singleflight.Group
	logger     *logrus.Logger
	sleep      func(time.Duration)
}

type ClientOpts struct {
	BaseURL string
	Sleep   func(time.Duration)
}

func NewClient(apiKey string, logger *logrus.Logger, opts *ClientOpts) Searcher {
	baseURL := defaultBaseURL
	sleep := time.Sleep
	if opts != nil && opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	if opts != nil && opts.Sleep != nil {
		sleep = opts.Sleep
	}
	return &client{
		httpClient: &http.Client{Timeout: requestTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "shopping-search",
			MaxRequests: 5,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		logger: logger,
		sleep:  sleep,
	}
}

// Search executes one provider query. Identical concurrent queries are
// collapsed into a single outbound call.
func (c *client) Search(ctx context.Context, query string, resultCount int) ([]RawProduct, error) {
	if c.apiKey == "" {
		return nil, domain.ErrNotConfigured
	}

	key := query + ":" + strconv.Itoa(resultCount)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.doSearch(ctx, query, resultCount)
	})
	if err != nil {
		return nil, err
	}
	items, ok := result.([]RawProduct)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type", domain.ErrProviderUnavailable)
	}
	return items, nil
}

func (c *client) doSearch(ctx context.Context, query string, resultCount int) ([]RawProduct, error) {
	execute := func() (interface{}, error) {
		resp, err := c.get(ctx, query, resultCount)
		if err != nil {
			prometheus.ProviderCallsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}

		// One delayed retry on throttling, then give up.
		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if c.logger != nil {
				c.logger.WithField("query", query).Warn("shopping provider throttled, retrying once")
			}
			c.sleep(throttleRetryWait)
			resp, err = c.get(ctx, query, resultCount)
			if err != nil {
				prometheus.ProviderCallsTotal.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				_ = resp.Body.Close()
				prometheus.ProviderCallsTotal.WithLabelValues("throttled").Inc()
				return nil, fmt.Errorf("%w: throttled after retry", domain.ErrProviderUnavailable)
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			prometheus.ProviderCallsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}

		var decoded searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			prometheus.ProviderCallsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: decode: %v", domain.ErrProviderUnavailable, err)
		}
		if decoded.Error != "" {
			prometheus.ProviderCallsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, decoded.Error)
		}

		prometheus.ProviderCallsTotal.WithLabelValues("ok").Inc()
		return decoded.ShoppingResults, nil
	}

	result, err := c.breaker.Execute(execute)
	if err != nil {
		return nil, err
	}
	items, ok := result.([]RawProduct)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type", domain.ErrProviderUnavailable)
	}
	return items, nil
}

func (c *client) get(ctx context.Context, query string, resultCount int) (*http.Response, error) {
	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("google_domain", "google.com")
	params.Set("gl", "us")
	params.Set("hl", "en")
	params.Set("num", strconv.Itoa(resultCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}
