// Package market is the HTTP adapter for the gift marketplace: listings,
// per-model floor prices, wallet balance and purchase execution.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"giftsniper/auth"
	"giftsniper/config"
	"giftsniper/logger"
	"giftsniper/models"
)

// ErrAuthExpired is returned when the marketplace rejects the bearer token.
// Purchase calls surface it immediately so the caller can schedule a token
// rotation without burning the snipe window on a retry.
var ErrAuthExpired = errors.New("market: authorization expired")

// Client talks to the marketplace REST API. Read endpoints retry once after a
// synchronous token refresh on a 401; Buy never retries.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *auth.TokenManager
	limiter *rate.Limiter
	log     *logger.Entry
}

// NewClient builds a marketplace client with a pooled transport and a request
// rate limiter sized from the source config.
func NewClient(cfg config.MarketSourceConfig, tokens *auth.TokenManager) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	rps := cfg.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger().WithComponent("market"),
	}
}

// FetchListings returns the freshest listings across the given collections,
// newest first. Model filters are the union of each collection's target
// models.
func (c *Client) FetchListings(ctx context.Context, collections []models.Collection, limit int) ([]models.RawListing, error) {
	slugs := make([]string, 0, len(collections))
	modelFilter := make([]string, 0)
	for _, col := range collections {
		slugs = append(slugs, col.ShortName)
		modelFilter = append(modelFilter, col.Models...)
	}

	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("filter_by_collections", strings.Join(slugs, ","))
	q.Set("filter_by_models", strings.Join(modelFilter, ","))
	q.Set("max_price", "99999")
	q.Set("sort_by", "listed_at desc")
	q.Set("status", "listed")
	q.Set("premarket_status", "all")

	var envelope models.ListingsResponse
	if err := c.getJSON(ctx, "/nfts?"+q.Encode(), &envelope, true); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// FetchFloorPrices returns floor prices keyed by collection slug then model
// name. Models without an active listing are omitted.
func (c *Client) FetchFloorPrices(ctx context.Context, collections []models.Collection) (map[string]map[string]float64, error) {
	slugs := make([]string, 0, len(collections))
	for _, col := range collections {
		slugs = append(slugs, col.ShortName)
	}

	q := url.Values{}
	q.Set("short_names", strings.Join(slugs, ","))

	var envelope models.FloorFilterResponse
	if err := c.getJSON(ctx, "/collections/filters?"+q.Encode(), &envelope, true); err != nil {
		return nil, err
	}

	result := make(map[string]map[string]float64, len(envelope.FloorPrices))
	for slug, floors := range envelope.FloorPrices {
		clean := make(map[string]float64, len(floors.Models))
		for model, price := range floors.Models {
			if price != nil {
				clean[model] = *price
			}
		}
		result[slug] = clean
	}
	return result, nil
}

// Balance returns the wallet balance of the authenticated account.
func (c *Client) Balance(ctx context.Context) (models.Money, error) {
	var envelope models.WalletResponse
	if err := c.getJSON(ctx, "/users/me", &envelope, true); err != nil {
		return models.Money{}, err
	}
	balance, err := models.MoneyFromString(envelope.Balance.String())
	if err != nil {
		return models.Money{}, fmt.Errorf("parse wallet balance %q: %w", envelope.Balance, err)
	}
	return balance, nil
}

type buyRequest struct {
	NFTDetails []buyDetail `json:"nft_details"`
}

type buyDetail struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

// Buy submits a purchase at exactly the given price. On a 401 it returns
// ErrAuthExpired without retrying: a refresh is too slow for the snipe
// window, the caller rotates the token for the next cycle instead.
func (c *Client) Buy(ctx context.Context, listingID string, price models.Money) error {
	payload, err := json.Marshal(buyRequest{
		NFTDetails: []buyDetail{{ID: listingID, Price: price.Amount.String()}},
	})
	if err != nil {
		return fmt.Errorf("encode buy payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/nfts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("buy request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrAuthExpired
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("buy %s rejected: status %d: %s", listingID, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// getJSON fetches a read endpoint into dst. A 401 triggers one synchronous
// token refresh and a single retry when retryAuth is set.
func (c *Client) getJSON(ctx context.Context, path string, dst interface{}, retryAuth bool) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized && retryAuth:
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.log.Warn("marketplace rejected token, refreshing")
		if c.tokens.Refresh(ctx) {
			return c.getJSON(ctx, path, dst, false)
		}
		return ErrAuthExpired
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthExpired
	default:
		return fmt.Errorf("marketplace %s: status %d", path, resp.StatusCode)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// setHeaders mirrors the browser session the marketplace expects alongside
// the bearer token.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Authorization", c.tokens.Token())
	req.Header.Set("Origin", "https://portal-market.com")
	req.Header.Set("Referer", "https://portal-market.com/marketplace")
}
