package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/vilnisdev/catoctin-mountain/internal/config"
)

func TestHealthRoute(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	s := NewServer(cfg, nil, nil, nil)

	resp, err := s.App.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMapConfigRoute(t *testing.T) {
	cfg := config.Config{
		JWTSecret:       "test-secret",
		ParkCenterLat:   39.6334,
		ParkCenterLng:   -77.4530,
		ParkDefaultZoom: 13,
		ParkMinLat:      39.55,
		ParkMaxLat:      39.72,
		ParkMinLng:      -77.56,
		ParkMaxLng:      -77.37,
	}
	s := NewServer(cfg, nil, nil, nil)

	resp, err := s.App.Test(httptest.NewRequest("GET", "/map/config", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		CenterLat   float64 `json:"center_lat"`
		CenterLng   float64 `json:"center_lng"`
		DefaultZoom int     `json:"default_zoom"`
		Bounds      struct {
			MinLat float64 `json:"min_lat"`
			MaxLat float64 `json:"max_lat"`
			MinLng float64 `json:"min_lng"`
			MaxLng float64 `json:"max_lng"`
		} `json:"bounds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CenterLat != 39.6334 || body.DefaultZoom != 13 {
		t.Fatalf("unexpected map config: %+v", body)
	}
	if body.Bounds.MinLat >= body.Bounds.MaxLat || body.Bounds.MinLng >= body.Bounds.MaxLng {
		t.Fatalf("bounds box malformed: %+v", body.Bounds)
	}
}

func TestProtectedRoutesRegistered(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}
	s := NewServer(cfg, nil, nil, nil)

	resp, err := s.App.Test(httptest.NewRequest("GET", "/pois", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}
