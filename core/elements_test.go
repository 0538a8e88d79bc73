package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ISS entry from the embedded sample catalog page.
const (
	issLine1 = "1 25544U 98067A   24228.93302811  .00023181  00000+0  41033-3 0  9993"
	issLine2 = "2 25544  51.6409  19.3451 0005404 204.9983 297.3069 15.50171321467816"
)

func TestParseTLE_ISS(t *testing.T) {
	el := ParseTLE(issLine1, issLine2)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"inclination", el.Inclination, 51.6409},
		{"right ascension", el.RightAscension, 19.3451},
		{"eccentricity", el.Eccentricity, 0.0005404},
		{"argument of perigee", el.ArgumentOfPerigee, 204.9983},
		{"mean anomaly", el.MeanAnomaly, 297.3069},
		{"mean motion", el.MeanMotion, 15.50171321},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if !el.Valid() {
		t.Fatalf("expected ISS elements to be valid")
	}
	if el.NoradID != 25544 {
		t.Fatalf("NoradID = %d, want 25544", el.NoradID)
	}

	wantEpoch := time.Date(2024, time.August, 15, 22, 23, 33, 0, time.UTC)
	if d := el.Epoch.Sub(wantEpoch); d < -time.Second || d > time.Second {
		t.Fatalf("Epoch = %v, want ~%v", el.Epoch, wantEpoch)
	}
}

func TestParseTLE_MalformedYieldsNaN(t *testing.T) {
	tests := []struct {
		name  string
		line2 string
	}{
		{"empty", ""},
		{"short", "2 25544  51.6409"},
		{"garbage", "2 25544  abcdefgh  19.3451 0005404 204.9983 297.3069 15.50171321467816"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := ParseTLE("", tt.line2)
			if el.Valid() {
				t.Fatalf("expected malformed line to produce invalid elements, got %+v", el)
			}
			if !el.Epoch.IsZero() {
				t.Fatalf("expected zero epoch for missing line1, got %v", el.Epoch)
			}
		})
	}

	el := ParseTLE("", "2 25544  51.6409")
	if el.Inclination != 51.6409 {
		t.Fatalf("inclination should still parse from a short line, got %v", el.Inclination)
	}
	if !math.IsNaN(el.MeanMotion) {
		t.Fatalf("mean motion past end of line should be NaN, got %v", el.MeanMotion)
	}
}

func TestParseTLE_ZeroMeanMotionInvalid(t *testing.T) {
	line2 := "2 25544  51.6409  19.3451 0005404 204.9983 297.3069  0.00000000467816"
	el := ParseTLE(issLine1, line2)
	if el.MeanMotion != 0 {
		t.Fatalf("MeanMotion = %v, want 0", el.MeanMotion)
	}
	if el.Valid() {
		t.Fatalf("zero mean motion must not be propagatable")
	}
}

func TestParseTLEStrict(t *testing.T) {
	if _, err := ParseTLEStrict(issLine1, issLine2); err != nil {
		t.Fatalf("ParseTLEStrict(ISS): %v", err)
	}
	if _, err := ParseTLEStrict(issLine1+"\r\n", issLine2+"\n"); err != nil {
		t.Fatalf("trailing newlines should be tolerated: %v", err)
	}

	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"short line1", issLine1[:60], issLine2},
		{"short line2", issLine1, issLine2[:60]},
		{"swapped", issLine2, issLine1},
		{"bad field", issLine1, "2 25544  51.64X9  19.3451 0005404 204.9983 297.3069 15.50171321467816"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTLEStrict(tt.line1, tt.line2)
			if !errors.Is(err, ErrMalformedTLE) {
				t.Fatalf("expected ErrMalformedTLE, got %v", err)
			}
		})
	}
}

func TestFormatLine2FieldsRoundTrip(t *testing.T) {
	el := ParseTLE(issLine1, issLine2)
	formatted := FormatLine2Fields(el)

	for _, col := range [][2]int{
		colInclination, colRAAN, colEccentricity, colArgPerigee, colMeanAnomaly, colMeanMotion,
	} {
		if got, want := formatted[col[0]:col[1]], issLine2[col[0]:col[1]]; got != want {
			t.Fatalf("columns [%d,%d) = %q, want %q", col[0], col[1], got, want)
		}
	}

	back := ParseTLE(issLine1, formatted)
	if back.Inclination != el.Inclination || back.Eccentricity != el.Eccentricity || back.MeanMotion != el.MeanMotion {
		t.Fatalf("re-parsed elements differ: %+v vs %+v", back, el)
	}
}

func TestParseEpoch_CenturyPivot(t *testing.T) {
	line1 := "1 00005U 58002B   58001.50000000  .00000023  00000-0  28098-4 0  4753"
	epoch, err := ParseEpoch(line1)
	if err != nil {
		t.Fatalf("ParseEpoch: %v", err)
	}
	want := time.Date(1958, time.January, 1, 12, 0, 0, 0, time.UTC)
	if d := epoch.Sub(want); d < -time.Second || d > time.Second {
		t.Fatalf("epoch = %v, want %v", epoch, want)
	}

	if _, err := ParseEpoch("1 25544U"); !errors.Is(err, ErrMalformedTLE) {
		t.Fatalf("expected ErrMalformedTLE for short line, got %v", err)
	}
}

func TestJulianDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want float64
	}{
		{time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{time.Date(2024, 8, 16, 0, 0, 0, 0, time.UTC), 2460538.5},
	}
	for _, tt := range tests {
		if got := JulianDate(tt.in); math.Abs(got-tt.want) > 1e-6 {
			t.Fatalf("JulianDate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
