package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/model"
)

func TestSamplePage(t *testing.T) {
	page, err := SamplePage()
	if err != nil {
		t.Fatalf("SamplePage: %v", err)
	}
	if len(page.Satellites) != 20 {
		t.Fatalf("len(Satellites) = %d, want 20", len(page.Satellites))
	}
	for _, sat := range page.Satellites {
		if _, err := core.ParseTLEStrict(sat.Line1, sat.Line2); err != nil {
			t.Fatalf("sample entry %d (%s) does not parse strictly: %v", sat.ID, sat.Name, err)
		}
	}
}

func TestStaticSourcePagination(t *testing.T) {
	src, err := NewSampleSource()
	if err != nil {
		t.Fatalf("NewSampleSource: %v", err)
	}
	_ = src
	small :=NewStaticSource(mustSample(t), 8)
	ctx := context.Background()

	first, err := small.FetchPage(ctx, 0)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if first.Number != 1 || len(first.Satellites) != 8 || !first.HasNext || first.HasPrev {
		t.Fatalf("unexpected first page: %+v", first)
	}
	last, _ := small.FetchPage(ctx, 3)
	if len(last.Satellites) != 4 || last.HasNext || !last.HasPrev {
		t.Fatalf("unexpected last page: n=%d next=%v prev=%v", len(last.Satellites), last.HasNext, last.HasPrev)
	}
	if last.LastPage() != 3 {
		t.Fatalf("LastPage = %d, want 3", last.LastPage())
	}
	beyond, _ := small.FetchPage(ctx, 9)
	if len(beyond.Satellites) != 0 {
		t.Fatalf("page past the end should be empty")
	}
}

func TestStaticSourceFetchSatellite(t *testing.T) {
	src, err := NewSampleSource()
	if err != nil {
		t.Fatalf("NewSampleSource: %v", err)
	}
	sat, err := src.FetchSatellite(context.Background(), 33591)
	if err != nil || sat.Name != "NOAA 19" {
		t.Fatalf("FetchSatellite(33591) = %+v, %v", sat, err)
	}
	if _, err := src.FetchSatellite(context.Background(), 99999); !errors.Is(err, ErrSatelliteNotFound) {
		t.Fatalf("expected ErrSatelliteNotFound, got %v", err)
	}
}

func TestParseTLETextSkipsMalformed(t *testing.T) {
	f, err := os.Open("testdata/sample.tle")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	sats, err := ParseTLEText(f)
	if err != nil {
		t.Fatalf("ParseTLEText: %v", err)
	}
	wantIDs := []int{25544, 40075, 36797, 43694, 47966}
	if len(sats) != len(wantIDs) {
		t.Fatalf("got %d satellites, want %d", len(sats), len(wantIDs))
	}
	for i, id := range wantIDs {
		if sats[i].ID != id {
			t.Fatalf("sats[%d].ID = %d, want %d", i, sats[i].ID, id)
		}
		if len(sats[i].Line1) != 69 || len(sats[i].Line2) != 69 {
			t.Fatalf("sats[%d] lines not trimmed: %q", i, sats[i].Line1)
		}
	}
	if sats[3].Name != "PROXIMA I" {
		t.Fatalf("Name = %q, want PROXIMA I", sats[3].Name)
	}
	if sats[0].Date.Year() != 2024 || sats[0].Date.YearDay() != 228 {
		t.Fatalf("Date = %v, want day 228 of 2024", sats[0].Date)
	}
}

func mustSample(t *testing.T) []model.Satellite {
	t.Helper()
	page, err := SamplePage()
	if err != nil {
		t.Fatalf("SamplePage: %v", err)
	}
	return page.Satellites
}

func TestLoadTLEFile(t *testing.T) {
	src, err := LoadTLEFile("testdata/sample.tle", 2)
	if err != nil {
		t.Fatalf("LoadTLEFile: %v", err)
	}
	ctx := context.Background()
	p, err := src.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if p.TotalItems != 5 || len(p.Satellites) != 2 || !p.HasNext {
		t.Fatalf("unexpected first page: total=%d n=%d next=%v", p.TotalItems, len(p.Satellites), p.HasNext)
	}
	if sat, err := src.FetchSatellite(ctx, 43694); err != nil || sat.Name != "PROXIMA I" {
		t.Fatalf("FetchSatellite(43694) = %+v, %v", sat, err)
	}
}

func TestLoadTLEFileErrors(t *testing.T) {
	if _, err := LoadTLEFile(filepath.Join(t.TempDir(), "missing.tle"), 0); err == nil {
		t.Fatalf("expected error for missing file")
	}
	empty := filepath.Join(t.TempDir(), "empty.tle")
	if err := os.WriteFile(empty, []byte("just a name\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadTLEFile(empty, 0); err == nil {
		t.Fatalf("expected error for a file without TLE entries")
	}
}
