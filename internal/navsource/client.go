package navsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/config"
	"github.com/cloud-ru/mcp-fintools-go/internal/metrics"
)

const (
	// DefaultBaseURL адрес публичного API фондов
	DefaultBaseURL = "https://api.mfapi.in"

	fetchConcurrency = 4
	queryDateLayout  = "2006-01-02"
)

var (
	// ErrSchemeNotFound фонд с таким кодом не найден
	ErrSchemeNotFound = errors.New("scheme not found")
	// ErrUpstream источник вернул ошибку или неразборчивый ответ
	ErrUpstream = errors.New("nav upstream error")
)

// SchemeMeta описание фонда в ответе источника
type SchemeMeta struct {
	FundHouse           string `json:"fund_house"`
	SchemeType          string `json:"scheme_type"`
	SchemeCategory      string `json:"scheme_category"`
	SchemeCode          int    `json:"scheme_code"`
	SchemeName          string `json:"scheme_name"`
	ISINGrowth          string `json:"isin_growth"`
	ISINDivReinvestment string `json:"isin_div_reinvestment"`
}

// Scheme фонд с последним NAV
type Scheme struct {
	SchemeCode          int    `json:"schemeCode"`
	SchemeName          string `json:"schemeName"`
	FundHouse           string `json:"fundHouse,omitempty"`
	SchemeType          string `json:"schemeType,omitempty"`
	SchemeCategory      string `json:"schemeCategory,omitempty"`
	ISINGrowth          string `json:"isinGrowth,omitempty"`
	ISINDivReinvestment string `json:"isinDivReinvestment,omitempty"`
	NAV                 string `json:"nav"`
	Date                string `json:"date"`
}

// SearchResult результат поиска фонда
type SearchResult struct {
	SchemeCode int    `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// SchemeHistory описание фонда и его история NAV по возрастанию дат
type SchemeHistory struct {
	Meta    SchemeMeta
	History *calculations.NAVHistory
}

type historyResponse struct {
	Meta   SchemeMeta               `json:"meta"`
	Data   []calculations.NAVRecord `json:"data"`
	Status string                   `json:"status"`
}

// Options настройки клиента
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client клиент источника NAV.
// Истории кэшируются на время жизни клиента, одинаковые одновременные запросы выполняются один раз.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	group      singleflight.Group
	timeout    time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient создает клиента источника NAV
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit, burst := rate.Inf, 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		if b := int(opts.RatePerSec); b > 1 {
			burst = b
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache.New(cache.NoExpiration, 0),
		timeout:    timeout,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// NewClientFromConfig создает клиента по конфигурации сервиса
func NewClientFromConfig(cfg *config.Config, logger zerolog.Logger) *Client {
	return NewClient(Options{
		BaseURL:    cfg.NAVAPIBase,
		Timeout:    cfg.NAVTimeout,
		RatePerSec: cfg.NAVRatePerSec,
		Logger:     logger,
	})
}

// History возвращает историю NAV фонда за последние years лет
func (c *Client) History(ctx context.Context, schemeCode, years int) (*SchemeHistory, error) {
	key := fmt.Sprintf("%d-%d", schemeCode, years*365)
	v, err := c.cached(ctx, key, func(ctx context.Context) (interface{}, error) {
		end := c.now()
		start := end.AddDate(-years, 0, 0)
		path := fmt.Sprintf("/mf/%d?startDate=%s&endDate=%s",
			schemeCode, start.Format(queryDateLayout), end.Format(queryDateLayout))

		var resp historyResponse
		if err := c.getJSON(ctx, "history", path, &resp); err != nil {
			return nil, err
		}
		if resp.Meta.SchemeCode == 0 && len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrSchemeNotFound, schemeCode)
		}
		history, err := calculations.ParseNAVRecords(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return &SchemeHistory{Meta: resp.Meta, History: history}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SchemeHistory), nil
}

// Scheme возвращает описание фонда и последний NAV
func (c *Client) Scheme(ctx context.Context, schemeCode int) (*Scheme, error) {
	key := fmt.Sprintf("details-%d", schemeCode)
	v, err := c.cached(ctx, key, func(ctx context.Context) (interface{}, error) {
		var resp historyResponse
		if err := c.getJSON(ctx, "scheme", fmt.Sprintf("/mf/%d/latest", schemeCode), &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("%w: %d", ErrSchemeNotFound, schemeCode)
		}
		nav, err := navString(resp.Data[0].NAV)
		if err != nil {
			return nil, err
		}
		return &Scheme{
			SchemeCode:          resp.Meta.SchemeCode,
			SchemeName:          resp.Meta.SchemeName,
			FundHouse:           resp.Meta.FundHouse,
			SchemeType:          resp.Meta.SchemeType,
			SchemeCategory:      resp.Meta.SchemeCategory,
			ISINGrowth:          resp.Meta.ISINGrowth,
			ISINDivReinvestment: resp.Meta.ISINDivReinvestment,
			NAV:                 nav,
			Date:                resp.Data[0].Date,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Scheme), nil
}

func navString(v interface{}) (string, error) {
	switch n := v.(type) {
	case string:
		return n, nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: unexpected nav %v", ErrUpstream, v)
	}
}

// Search ищет фонды по названию
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var results []SearchResult
	if err := c.getJSON(ctx, "search", "/mf/search?q="+url.QueryEscape(query), &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Latest возвращает страницу фондов с последними NAV
func (c *Client) Latest(ctx context.Context, limit, offset int) ([]Scheme, error) {
	var schemes []Scheme
	path := fmt.Sprintf("/mf/latest?limit=%d&offset=%d", limit, offset)
	if err := c.getJSON(ctx, "latest", path, &schemes); err != nil {
		return nil, err
	}
	return schemes, nil
}

// FetchMany загружает истории нескольких фондов параллельно.
// Ненайденные фонды пропускаются, любая другая ошибка прерывает загрузку.
func (c *Client) FetchMany(ctx context.Context, schemeCodes []int, years int) (map[int]*SchemeHistory, error) {
	var mu sync.Mutex
	out := make(map[int]*SchemeHistory, len(schemeCodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, code := range schemeCodes {
		code := code
		g.Go(func() error {
			h, err := c.History(gctx, code, years)
			if errors.Is(err, ErrSchemeNotFound) {
				c.logger.Warn().Int("scheme_code", code).Msg("scheme not found, skipping")
				return nil
			}
			if err != nil {
				return fmt.Errorf("scheme %d: %w", code, err)
			}
			mu.Lock()
			out[code] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) cached(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.cache.Get(key); ok {
		metrics.NAVCacheRequests.WithLabelValues("hit").Inc()
		return v, nil
	}

	// Общий запрос не зависит от отмены контекста первого вызвавшего,
	// каждый вызывающий ждет результат в пределах своего ctx.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		metrics.NAVCacheRequests.WithLabelValues("miss").Inc()
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, cache.NoExpiration)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("key", key).Msg("shared in-flight nav request")
		}
		return res.Val, res.Err
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APICalls.WithLabelValues("mfapi", endpoint, "error").Inc()
		return fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("mfapi call")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.APICalls.WithLabelValues("mfapi", endpoint, "not_found").Inc()
		return ErrSchemeNotFound
	case resp.StatusCode >= 400:
		metrics.APICalls.WithLabelValues("mfapi", endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.APICalls.WithLabelValues("mfapi", endpoint, "error").Inc()
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, endpoint, err)
	}
	metrics.APICalls.WithLabelValues("mfapi", endpoint, "success").Inc()
	return nil
}
