// Package analytics reads the marketplace telemetry API: collection stats,
// sales history and the derived velocity and trend signals used by the
// analytics strategy.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"giftsniper/config"
	"giftsniper/logger"
	"giftsniper/models"
)

const handleCacheTTL = time.Hour

// Client queries the telemetry endpoints with a small TTL cache in front.
// Telemetry is advisory: callers treat errors as a signal to fall back, so
// the client reports them instead of masking them with zero values.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry

	log *logger.Entry
}

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

// NewClient builds a telemetry client from the analytics source config.
func NewClient(cfg config.AnalyticsSourceConfig, token string) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: cfg.Timeout},
		cacheTTL: ttl,
		cache:    make(map[string]cacheEntry),
		log:      logger.GetLogger().WithComponent("analytics"),
	}
}

func (c *Client) cached(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.storedAt) >= entry.ttl {
		return nil, false
	}
	return entry.value, true
}

func (c *Client) store(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.cache[key] = cacheEntry{value: value, storedAt: time.Now(), ttl: ttl}
	c.mu.Unlock()
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://portal-market.com/collection-list")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("analytics %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analytics %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("analytics %s: decode: %w", path, err)
	}
	return nil
}

type rawCollectionStats struct {
	ShortName   string  `json:"short_name"`
	Volume24h   float64 `json:"volume_24h"`
	Sales24h    float64 `json:"sales_count_24h"`
	FloorPrice  float64 `json:"floor_price"`
	ItemsCount  float64 `json:"items_count"`
	OwnersCount float64 `json:"owners_count"`
}

type collectionsResponse struct {
	Results []rawCollectionStats `json:"results"`
}

// CollectionsStats returns 24h metrics for every listed collection, keyed by
// lowercased slug. Used for the periodic market overview log.
func (c *Client) CollectionsStats(ctx context.Context) (map[string]models.CollectionStats, error) {
	const key = "collections_stats"
	if v, ok := c.cached(key); ok {
		return v.(map[string]models.CollectionStats), nil
	}

	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", "150")

	var envelope collectionsResponse
	if err := c.getJSON(ctx, "/collections?"+q.Encode(), &envelope); err != nil {
		return nil, err
	}

	result := make(map[string]models.CollectionStats, len(envelope.Results))
	for _, item := range envelope.Results {
		slug := strings.ToLower(item.ShortName)
		if slug == "" {
			continue
		}
		result[slug] = models.CollectionStats{
			Volume24h:   item.Volume24h,
			Sales24h:    item.Sales24h,
			FloorPrice:  item.FloorPrice,
			ItemsCount:  item.ItemsCount,
			OwnersCount: item.OwnersCount,
		}
	}

	c.store(key, result, c.cacheTTL)
	return result, nil
}

// CollectionID resolves the telemetry id for a collection slug. Returns an
// empty id without error when the collection is unknown to the telemetry API.
// Resolved handles are cached for an hour: collection ids never change.
func (c *Client) CollectionID(ctx context.Context, shortName string) (string, error) {
	key := "collection_id_" + shortName
	if v, ok := c.cached(key); ok {
		return v.(string), nil
	}

	q := url.Values{}
	q.Set("short_names", shortName)

	var envelope models.FloorFilterResponse
	if err := c.getJSON(ctx, "/collections/filters?"+q.Encode(), &envelope); err != nil {
		return "", err
	}
	if len(envelope.Collections) == 0 || envelope.Collections[0].ID == "" {
		c.log.WithFields(logger.Fields{"collection": shortName}).Debug("collection unknown to telemetry API")
		return "", nil
	}

	id := envelope.Collections[0].ID
	c.store(key, id, handleCacheTTL)
	return id, nil
}

type metricPoint struct {
	Date       string  `json:"date"`
	SalesCount float64 `json:"sales_count"`
}

type metricsResponse struct {
	Metrics []metricPoint `json:"metrics"`
}

type collectionMetrics struct {
	Sales24h      float64
	Sales48h      float64
	TrendingScore float64
}

// collectionMetricsFor aggregates daily metric points into 24h/48h sales
// counts and a trending score (24h sales over the prior 24h window).
func (c *Client) collectionMetricsFor(ctx context.Context, collectionID string) (collectionMetrics, error) {
	key := "metrics_" + collectionID
	if v, ok := c.cached(key); ok {
		return v.(collectionMetrics), nil
	}

	now := time.Now()
	q := url.Values{}
	q.Set("group_by", "day")
	q.Set("from", now.Add(-48*time.Hour).Format(time.RFC3339))
	q.Set("to", now.Format(time.RFC3339))

	var envelope metricsResponse
	if err := c.getJSON(ctx, "/collections/"+collectionID+"/metrics?"+q.Encode(), &envelope); err != nil {
		return collectionMetrics{}, err
	}

	cutoff24h := now.Add(-24 * time.Hour)
	cutoff48h := now.Add(-48 * time.Hour)

	var m collectionMetrics
	for _, point := range envelope.Metrics {
		date, err := time.Parse(time.RFC3339, point.Date)
		if err != nil {
			continue
		}
		if date.After(cutoff24h) {
			m.Sales24h += point.SalesCount
		}
		if date.After(cutoff48h) {
			m.Sales48h += point.SalesCount
		}
	}

	m.TrendingScore = 1.0
	if prior := m.Sales48h - m.Sales24h; prior > 0 {
		m.TrendingScore = m.Sales24h / prior
	}

	c.store(key, m, c.cacheTTL)
	return m, nil
}

type saleAction struct {
	CreatedAt string `json:"created_at"`
	NFT       struct {
		Model string `json:"model"`
	} `json:"nft"`
}

type actionsResponse struct {
	Results []saleAction `json:"results"`
}

// salesHistory returns completed purchases in the collection within the
// trailing window, newest first as served by the API.
func (c *Client) salesHistory(ctx context.Context, collectionID string, hours, limit int) ([]saleAction, error) {
	key := fmt.Sprintf("sales_%s_%d", collectionID, hours)
	if v, ok := c.cached(key); ok {
		return v.([]saleAction), nil
	}

	q := url.Values{}
	q.Set("collection_id", collectionID)
	q.Set("action_types", "buy")
	q.Set("offset", "0")
	q.Set("limit", strconv.Itoa(limit))

	var envelope actionsResponse
	if err := c.getJSON(ctx, "/market/actions/?"+q.Encode(), &envelope); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	sales := make([]saleAction, 0, len(envelope.Results))
	for _, item := range envelope.Results {
		createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			continue
		}
		if createdAt.After(cutoff) {
			sales = append(sales, item)
		}
	}

	c.store(key, sales, c.cacheTTL)
	return sales, nil
}

// ModelVelocity counts completed sales of one model within the trailing
// window.
func (c *Client) ModelVelocity(ctx context.Context, collectionID, model string, hours int) (int, error) {
	sales, err := c.salesHistory(ctx, collectionID, hours, 200)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sale := range sales {
		if sale.NFT.Model == model {
			count++
		}
	}
	return count, nil
}

// IsTrending reports whether the collection's 24h sales exceed the prior 24h
// window by at least the threshold ratio.
func (c *Client) IsTrending(ctx context.Context, collectionID string, threshold float64) (bool, error) {
	m, err := c.collectionMetricsFor(ctx, collectionID)
	if err != nil {
		return false, err
	}
	return m.TrendingScore >= threshold, nil
}
