package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(zap.NewNop())
	c.base = srv.URL
	return c
}

func TestGeocode(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("searchVal")
		fmt.Fprint(w, `{"found":1,"results":[{"LATITUDE":"1.3521","LONGITUDE":"103.8198"}]}`)
	})

	coord, err := c.Geocode(context.Background(), "  Bishan St 13!  ")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if gotQuery != "Bishan St 13" {
		t.Errorf("searchVal = %q, want %q", gotQuery, "Bishan St 13")
	}
	if coord.Lat != 1.3521 || coord.Lon != 103.8198 {
		t.Errorf("coord = %v, want {1.3521 103.8198}", coord)
	}
}

func TestGeocodeCachesResults(t *testing.T) {
	var hits int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, `{"found":1,"results":[{"LATITUDE":"1.30","LONGITUDE":"103.80"}]}`)
	})

	for i := 0; i < 3; i++ {
		if _, err := c.Geocode(context.Background(), "Clementi Mall"); err != nil {
			t.Fatalf("Geocode #%d: %v", i, err)
		}
	}
	// Case differences hit the same cache entry.
	if _, err := c.Geocode(context.Background(), "clementi mall"); err != nil {
		t.Fatalf("Geocode lowercase: %v", err)
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}
}

func TestGeocodeNoResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"found":0,"results":[]}`)
	})

	_, err := c.Geocode(context.Background(), "atlantis")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("error = %v, want ErrNoResult", err)
	}
}

func TestGeocodeBadQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for an empty query")
	})

	for _, q := range []string{"", "   ", "!?., --"} {
		if _, err := c.Geocode(context.Background(), q); !errors.Is(err, ErrBadQuery) {
			t.Errorf("Geocode(%q) error = %v, want ErrBadQuery", q, err)
		}
	}
}

func TestGeocodeServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := c.Geocode(context.Background(), "Bishan")
	if err == nil {
		t.Fatalf("Geocode succeeded, want error")
	}
	if errors.Is(err, ErrNoResult) || errors.Is(err, ErrBadQuery) {
		t.Errorf("error = %v, want plain transport error", err)
	}
}

func TestGeocodeBadCoordinate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"found":1,"results":[{"LATITUDE":"north","LONGITUDE":"103.80"}]}`)
	})

	if _, err := c.Geocode(context.Background(), "Bishan"); err == nil {
		t.Fatalf("Geocode succeeded, want error")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bishan St 13", "Bishan St 13"},
		{"  570123  ", "570123"},
		{"Ang Mo Kio, Blk 53!", "Ang Mo Kio Blk 53"},
		{"<script>", "script"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
