package geo

import (
	"math"
	"strings"
	"testing"
)

func TestHaversineIdentity(t *testing.T) {
	pts := []Coordinate{
		{0, 0},
		{1.30, 103.80},
		{-45.5, 170.25},
	}
	for _, p := range pts {
		if d := Haversine(p, p); d != 0 {
			t.Fatalf("distance(%v,%v) = %v, want 0", p, p, d)
		}
	}
}

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][2]Coordinate{
		{{1.30, 103.80}, {1.31, 103.81}},
		{{0, 0}, {0, 1}},
		{{-33.87, 151.21}, {51.51, -0.13}},
	}
	for _, pr := range pairs {
		ab := Haversine(pr[0], pr[1])
		ba := Haversine(pr[1], pr[0])
		if ab != ba {
			t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	// One degree of longitude on the equator.
	d := Haversine(Coordinate{0, 0}, Coordinate{0, 1})
	if math.Abs(d-111195) > 5 {
		t.Fatalf("equator degree = %.1f m, want ~111195 m", d)
	}

	// Two points ~1.57 km apart in Singapore.
	d = Haversine(Coordinate{1.30, 103.80}, Coordinate{1.31, 103.81})
	if d < 1565 || d > 1580 {
		t.Fatalf("singapore pair = %.1f m, want ~1572 m", d)
	}
}

func TestCoordinateValid(t *testing.T) {
	cases := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{0, 0}, true},
		{Coordinate{90, 180}, true},
		{Coordinate{-90, -180}, true},
		{Coordinate{90.01, 0}, false},
		{Coordinate{0, -180.5}, false},
	}
	for _, tc := range cases {
		if got := tc.c.Valid(); got != tc.want {
			t.Fatalf("Valid(%v) = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestDirectionsURL(t *testing.T) {
	u := DirectionsURL(Coordinate{1.3521, 103.8198})
	want := "https://www.google.com/maps/dir/?api=1&destination=1.3521,103.8198"
	if u != want {
		t.Fatalf("url = %q, want %q", u, want)
	}
	if !strings.HasPrefix(u, "https://www.google.com/maps/dir/") {
		t.Fatalf("unexpected url prefix: %q", u)
	}
}
