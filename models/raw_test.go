package models

import (
	"encoding/json"
	"testing"
)

func TestRawListingMapping(t *testing.T) {
	payload := `{
		"address": "EQabc123",
		"collection": "col-1",
		"name": "Plush Pepe #42",
		"rank": 42,
		"image": "https://cdn.example/42.png",
		"price": "12.5",
		"attributes": [{"trait_type": "Backdrop", "value": "Gold"}],
		"model": "Plush Pepe"
	}`
	var raw RawListing
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	l, err := raw.Listing()
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}
	if l.ID != "EQabc123" || l.Model != "Plush Pepe" || l.Rank != 42 {
		t.Errorf("unexpected listing: %+v", l)
	}
	want := ton(t, "12.5")
	if !l.Price.Equal(want) {
		t.Errorf("price = %s, want %s", l.Price, want)
	}
	if len(l.Attributes) != 1 || l.Attributes[0].TraitType != "Backdrop" {
		t.Errorf("attributes not mapped: %+v", l.Attributes)
	}
}

func TestRawListingNumericPrice(t *testing.T) {
	var raw RawListing
	if err := json.Unmarshal([]byte(`{"address":"a1","price":3}`), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	l, err := raw.Listing()
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}
	if !l.Price.Equal(ton(t, "3")) {
		t.Errorf("price = %s, want 3 TON", l.Price)
	}
	if l.Model != "Unknown" {
		t.Errorf("model = %q, want Unknown fallback", l.Model)
	}
}

func TestRawListingRejectsMalformed(t *testing.T) {
	cases := []RawListing{
		{Address: "", Price: json.Number("1")},
		{Address: "x", Price: json.Number("not-a-number")},
		{Address: "x", Price: json.Number("0")},
		{Address: "x", Price: json.Number("-2")},
	}
	for i, raw := range cases {
		if _, err := raw.Listing(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, raw)
		}
	}
}
