package snipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"giftsniper/models"
)

type fakeFloorFetcher struct {
	calls  int
	floors map[string]map[string]float64
	err    error
}

func (f *fakeFloorFetcher) FetchFloorPrices(ctx context.Context, collections []models.Collection) (map[string]map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.floors, nil
}

func testCollection() models.Collection {
	return models.Collection{ID: "c1", Name: "Plush Pepes", ShortName: "plushpepe", Models: []string{"Plush Pepe"}}
}

func TestFloorCacheSingleFetchWithinWindow(t *testing.T) {
	fetcher := &fakeFloorFetcher{floors: map[string]map[string]float64{
		"plushpepe": {"Plush Pepe": 15.5},
	}}
	cache := NewFloorCache(fetcher, 30*time.Second)

	first := cache.Get(context.Background(), testCollection())
	second := cache.Get(context.Background(), testCollection())

	if fetcher.calls != 1 {
		t.Errorf("calls = %d, want exactly 1 within the freshness window", fetcher.calls)
	}
	if first["Plush Pepe"] != 15.5 || second["Plush Pepe"] != 15.5 {
		t.Errorf("unexpected floors: %v / %v", first, second)
	}
}

func TestFloorCacheRefetchAfterExpiry(t *testing.T) {
	fetcher := &fakeFloorFetcher{floors: map[string]map[string]float64{
		"plushpepe": {"Plush Pepe": 15.5},
	}}
	cache := NewFloorCache(fetcher, 10*time.Millisecond)

	cache.Get(context.Background(), testCollection())
	time.Sleep(20 * time.Millisecond)
	cache.Get(context.Background(), testCollection())

	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want 2 after window expiry", fetcher.calls)
	}
}

func TestFloorCacheFetchErrorYieldsEmpty(t *testing.T) {
	fetcher := &fakeFloorFetcher{err: errors.New("upstream down")}
	cache := NewFloorCache(fetcher, 30*time.Second)

	floors := cache.Get(context.Background(), testCollection())
	if len(floors) != 0 {
		t.Errorf("expected empty floors on fetch error, got %v", floors)
	}

	// Errors must not be cached: the next call tries upstream again
	cache.Get(context.Background(), testCollection())
	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want 2 (failures not cached)", fetcher.calls)
	}
}

func TestFloorCacheUnknownCollection(t *testing.T) {
	fetcher := &fakeFloorFetcher{floors: map[string]map[string]float64{}}
	cache := NewFloorCache(fetcher, 30*time.Second)

	floors := cache.Get(context.Background(), testCollection())
	if len(floors) != 0 {
		t.Errorf("expected empty floors for unknown collection, got %v", floors)
	}
}
