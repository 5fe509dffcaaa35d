package analytics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"giftsniper/config"
)

func newTestClient(t *testing.T, handler http.Handler, cacheTTL time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.AnalyticsSourceConfig{
		BaseURL:  srv.URL,
		Timeout:  time.Second,
		CacheTTL: cacheTTL,
	}, "tok")
}

func TestCollectionsStats(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/collections" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"results":[
			{"short_name":"PlushPepe","volume_24h":120.5,"sales_count_24h":14,"floor_price":8.2,"items_count":3000,"owners_count":900},
			{"short_name":"","volume_24h":1}
		]}`))
	}), time.Minute)

	stats, err := client.CollectionsStats(context.Background())
	if err != nil {
		t.Fatalf("CollectionsStats: %v", err)
	}
	pepe, ok := stats["plushpepe"]
	if !ok {
		t.Fatalf("stats keys = %v, want lowercased plushpepe", stats)
	}
	if pepe.Sales24h != 14 || pepe.FloorPrice != 8.2 {
		t.Errorf("stats = %+v", pepe)
	}
	if _, ok := stats[""]; ok {
		t.Error("nameless collection should be skipped")
	}

	// second read is served from cache
	if _, err := client.CollectionsStats(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("endpoint hit %d times, want 1", calls)
	}
}

func TestCollectionID(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("short_names"); got != "plushpepe" {
			t.Errorf("short_names = %q", got)
		}
		w.Write([]byte(`{"collections":[{"id":"cid-1","short_name":"plushpepe"}]}`))
	}), time.Minute)

	for i := 0; i < 2; i++ {
		id, err := client.CollectionID(context.Background(), "plushpepe")
		if err != nil {
			t.Fatalf("CollectionID: %v", err)
		}
		if id != "cid-1" {
			t.Errorf("id = %q, want cid-1", id)
		}
	}
	if calls != 1 {
		t.Errorf("handle resolved %d times, want 1 (cached)", calls)
	}
}

func TestCollectionIDUnknown(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"collections":[]}`))
	}), time.Minute)

	id, err := client.CollectionID(context.Background(), "nosuch")
	if err != nil {
		t.Fatalf("CollectionID: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty for unknown collection", id)
	}
}

func TestModelVelocity(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Hour).Format(time.RFC3339)
	stale := now.Add(-30 * time.Hour).Format(time.RFC3339)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/actions/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("action_types") != "buy" || q.Get("collection_id") != "cid-1" {
			t.Errorf("query = %v", q)
		}
		fmt.Fprintf(w, `{"results":[
			{"created_at":%q,"nft":{"model":"Golden"}},
			{"created_at":%q,"nft":{"model":"Golden"}},
			{"created_at":%q,"nft":{"model":"Silver"}},
			{"created_at":%q,"nft":{"model":"Golden"}}
		]}`, recent, recent, recent, stale)
	}), time.Minute)

	velocity, err := client.ModelVelocity(context.Background(), "cid-1", "Golden", 24)
	if err != nil {
		t.Fatalf("ModelVelocity: %v", err)
	}
	if velocity != 2 {
		t.Errorf("velocity = %d, want 2 (stale sale and other model excluded)", velocity)
	}
}

func TestIsTrending(t *testing.T) {
	now := time.Now()
	today := now.Add(-2 * time.Hour).Format(time.RFC3339)
	yesterday := now.Add(-30 * time.Hour).Format(time.RFC3339)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 9 sales in the last 24h vs 4 in the prior window: score 2.25
		fmt.Fprintf(w, `{"metrics":[
			{"date":%q,"sales_count":9},
			{"date":%q,"sales_count":4}
		]}`, today, yesterday)
	}), time.Minute)

	trending, err := client.IsTrending(context.Background(), "cid-1", 1.5)
	if err != nil {
		t.Fatalf("IsTrending: %v", err)
	}
	if !trending {
		t.Error("score 2.25 over threshold 1.5 should be trending")
	}

	notTrending, err := client.IsTrending(context.Background(), "cid-1", 3.0)
	if err != nil {
		t.Fatal(err)
	}
	if notTrending {
		t.Error("score 2.25 under threshold 3.0 should not be trending")
	}
}

func TestErrorsPropagate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), time.Minute)

	if _, err := client.CollectionsStats(context.Background()); err == nil {
		t.Error("CollectionsStats should surface a 502")
	}
	if _, err := client.CollectionID(context.Background(), "x"); err == nil {
		t.Error("CollectionID should surface a 502")
	}
	if _, err := client.ModelVelocity(context.Background(), "cid", "m", 24); err == nil {
		t.Error("ModelVelocity should surface a 502")
	}
	if _, err := client.IsTrending(context.Background(), "cid", 1.5); err == nil {
		t.Error("IsTrending should surface a 502")
	}
}
