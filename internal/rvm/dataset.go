package rvm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/koztkozt/bottlecangowhere/internal/geo"
)

// ErrNotFound is returned when an update references an unknown machine id.
var ErrNotFound = errors.New("rvm: machine not found")

// Geocoder resolves a free-text location query to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Coordinate, error)
}

// csvHeader is the persisted table layout. Order matters for round-tripping.
var csvHeader = []string{
	"id", "name", "address", "description", "hours",
	"latitude", "longitude", "status", "nearby", "updated_at",
}

// Dataset owns the in-memory machine table and its CSV persistence.
// All access goes through its methods; the mutex serializes readers in the
// ops HTTP handlers against writers in the update loop.
type Dataset struct {
	mu       sync.RWMutex
	path     string
	geocoder Geocoder
	records  []Record
	index    map[string]int // id -> position in records
}

// Open reads the machine table at path. A missing or malformed file is a
// startup failure; the caller must not continue with partial data.
func Open(path string, gc Geocoder) (*Dataset, error) {
	d := &Dataset{path: path, geocoder: gc}
	if err := d.load(); err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	return d, nil
}

func (d *Dataset) load() error {
	f, err := os.Open(d.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(csvHeader))
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return fmt.Errorf("header column %d is %q, want %q", i, header[i], col)
		}
	}

	var records []Record
	index := make(map[string]int)
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := index[rec.ID]; dup {
			return fmt.Errorf("line %d: duplicate id %q", line, rec.ID)
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}

	d.mu.Lock()
	d.records = records
	d.index = index
	d.mu.Unlock()
	return nil
}

func parseRow(row []string) (Record, error) {
	var rec Record
	if len(row) != len(csvHeader) {
		return rec, fmt.Errorf("row has %d columns, want %d", len(row), len(csvHeader))
	}
	rec.ID = row[0]
	if rec.ID == "" {
		return rec, errors.New("empty id")
	}
	rec.Name = row[1]
	if rec.Name == "" {
		return rec, errors.New("empty name")
	}
	rec.Address = row[2]
	rec.Description = row[3]
	rec.Hours = row[4]

	lat, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		return rec, fmt.Errorf("latitude %q: %w", row[5], err)
	}
	lon, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return rec, fmt.Errorf("longitude %q: %w", row[6], err)
	}
	rec.Coord = geo.Coordinate{Lat: lat, Lon: lon}
	if !rec.Coord.Valid() {
		return rec, fmt.Errorf("coordinate out of range: %v", rec.Coord)
	}

	rec.Status, err = ParseStatus(row[7])
	if err != nil {
		return rec, err
	}
	rec.Nearby = row[8]

	if row[9] != "" {
		ts, err := time.Parse(time.RFC3339, row[9])
		if err != nil {
			return rec, fmt.Errorf("updated_at %q: %w", row[9], err)
		}
		rec.UpdatedAt = ts.UTC()
	}
	return rec, nil
}

func formatRow(rec Record) []string {
	updated := ""
	if !rec.UpdatedAt.IsZero() {
		updated = rec.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		rec.ID,
		rec.Name,
		rec.Address,
		rec.Description,
		rec.Hours,
		strconv.FormatFloat(rec.Coord.Lat, 'f', -1, 64),
		strconv.FormatFloat(rec.Coord.Lon, 'f', -1, 64),
		string(rec.Status),
		rec.Nearby,
		updated,
	}
}

// Len returns the number of machines in the table.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Get returns the record with the given id.
func (d *Dataset) Get(id string) (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// NearestK returns the k machines closest to origin, ascending by
// great-circle distance, ties broken by id. Fewer than k are returned when
// the table is smaller.
func (d *Dataset) NearestK(origin geo.Coordinate, k int) []Neighbor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if k <= 0 {
		return nil
	}
	neighbors := make([]Neighbor, 0, len(d.records))
	for _, rec := range d.records {
		neighbors = append(neighbors, Neighbor{Record: rec, Meters: geo.Haversine(origin, rec.Coord)})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Meters != neighbors[j].Meters {
			return neighbors[i].Meters < neighbors[j].Meters
		}
		return neighbors[i].Record.ID < neighbors[j].Record.ID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// FindByQuery geocodes a free-text location and returns the k machines
// nearest to it.
func (d *Dataset) FindByQuery(ctx context.Context, query string, k int) ([]Neighbor, error) {
	if d.geocoder == nil {
		return nil, errors.New("rvm: no geocoder configured")
	}
	origin, err := d.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	return d.NearestK(origin, k), nil
}

// UpdateStatus overwrites the status and update timestamp of one machine and
// persists the table. The in-memory update survives a failed persist; the
// dataset is flushed again on shutdown.
func (d *Dataset) UpdateStatus(id string, status Status) error {
	d.mu.Lock()
	i, ok := d.index[id]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	d.records[i].Status = status
	// Second precision so the in-memory record matches what RFC3339 persists.
	d.records[i].UpdatedAt = time.Now().UTC().Truncate(time.Second)
	d.mu.Unlock()

	return d.Persist()
}

// Persist writes the whole table back to its file. The write goes to a
// temporary file in the same directory followed by a rename, so a crash
// mid-write never leaves a truncated table behind.
func (d *Dataset) Persist() error {
	d.mu.RLock()
	rows := make([][]string, 0, len(d.records)+1)
	rows = append(rows, csvHeader)
	for _, rec := range d.records {
		rows = append(rows, formatRow(rec))
	}
	d.mu.RUnlock()

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, ".rvm-*.csv")
	if err != nil {
		return fmt.Errorf("persist dataset: %w", err)
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("persist dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist dataset: %w", err)
	}
	return nil
}
