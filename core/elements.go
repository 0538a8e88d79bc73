package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// TLELineLength is the fixed width of a standard TLE line.
const TLELineLength = 69

// ErrMalformedTLE is returned by ParseTLEStrict when a line does not follow
// the fixed-column layout.
var ErrMalformedTLE = errors.New("malformed TLE")

// OrbitalElements holds the classical elements read from TLE line 2. Angles
// are in degrees and MeanMotion is in revolutions per day.
type OrbitalElements struct {
	Inclination       float64
	RightAscension    float64
	Eccentricity      float64
	ArgumentOfPerigee float64
	MeanAnomaly       float64
	MeanMotion        float64

	// Epoch is read from line 1 when it is well formed; zero otherwise.
	Epoch   time.Time
	NoradID int
}

// Valid reports whether the elements can be propagated: every element is
// finite and the mean motion is nonzero.
func (el OrbitalElements) Valid() bool {
	for _, f := range []float64{
		el.Inclination,
		el.RightAscension,
		el.Eccentricity,
		el.ArgumentOfPerigee,
		el.MeanAnomaly,
		el.MeanMotion,
	} {
		if !isFinite(f) {
			return false
		}
	}
	return el.MeanMotion != 0
}

// line2 column ranges, 0-indexed and half-open.
var (
	colInclination  = [2]int{8, 16}
	colRAAN         = [2]int{17, 25}
	colEccentricity = [2]int{26, 33}
	colArgPerigee   = [2]int{34, 42}
	colMeanAnomaly  = [2]int{43, 51}
	colMeanMotion   = [2]int{52, 63}
)

// ParseTLE reads the orbital elements from a TLE pair. It never fails: any
// field that cannot be read, including fields past the end of a short line,
// comes back as NaN.
func ParseTLE(line1, line2 string) OrbitalElements {
	el := OrbitalElements{
		Inclination:       parseColumn(line2, colInclination, ""),
		RightAscension:    parseColumn(line2, colRAAN, ""),
		Eccentricity:      parseColumn(line2, colEccentricity, "0."),
		ArgumentOfPerigee: parseColumn(line2, colArgPerigee, ""),
		MeanAnomaly:       parseColumn(line2, colMeanAnomaly, ""),
		MeanMotion:        parseColumn(line2, colMeanMotion, ""),
	}
	if epoch, err := ParseEpoch(line1); err == nil {
		el.Epoch = epoch
	}
	if len(line1) >= 7 {
		if id, err := strconv.Atoi(strings.TrimSpace(line1[2:7])); err == nil {
			el.NoradID = id
		}
	}
	return el
}

// ParseTLEStrict is ParseTLE with format checks. Checksums are not verified.
func ParseTLEStrict(line1, line2 string) (OrbitalElements, error) {
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")

	if len(line1) != TLELineLength {
		return OrbitalElements{}, fmt.Errorf("%w: line1 length %d, expected %d", ErrMalformedTLE, len(line1), TLELineLength)
	}
	if len(line2) != TLELineLength {
		return OrbitalElements{}, fmt.Errorf("%w: line2 length %d, expected %d", ErrMalformedTLE, len(line2), TLELineLength)
	}
	if !strings.HasPrefix(line1, "1 ") {
		return OrbitalElements{}, fmt.Errorf("%w: line1 must start with \"1 \"", ErrMalformedTLE)
	}
	if !strings.HasPrefix(line2, "2 ") {
		return OrbitalElements{}, fmt.Errorf("%w: line2 must start with \"2 \"", ErrMalformedTLE)
	}

	el := ParseTLE(line1, line2)
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"inclination", el.Inclination},
		{"right ascension", el.RightAscension},
		{"eccentricity", el.Eccentricity},
		{"argument of perigee", el.ArgumentOfPerigee},
		{"mean anomaly", el.MeanAnomaly},
		{"mean motion", el.MeanMotion},
	} {
		if !isFinite(f.value) {
			return OrbitalElements{}, fmt.Errorf("%w: %s is not a number", ErrMalformedTLE, f.name)
		}
	}
	return el, nil
}

// ParseEpoch reads the YYDDD.DDDDDDDD epoch from line 1 columns [18,32).
// Two-digit years 57-99 map to the 1900s and 00-56 to the 2000s.
func ParseEpoch(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("%w: line1 too short for epoch", ErrMalformedTLE)
	}
	raw := strings.TrimSpace(line1[18:32])
	if len(raw) < 5 {
		return time.Time{}, fmt.Errorf("%w: epoch %q too short", ErrMalformedTLE, raw)
	}
	year, err := strconv.Atoi(raw[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: epoch year %q", ErrMalformedTLE, raw[:2])
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	day, err := strconv.ParseFloat(raw[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: epoch day %q", ErrMalformedTLE, raw[2:])
	}
	// Day 1.0 is midnight on January 1st, so the day-of-year acts as a
	// (possibly out of range) January day-of-month.
	jd := julian.CalendarGregorianToJD(year, 1, day)
	return julian.JDToTime(jd).UTC(), nil
}

// JulianDate returns the Julian date of t.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// FormatLine2Fields writes the six element fields back into their line 2
// columns. Columns outside the element fields are left blank.
func FormatLine2Fields(el OrbitalElements) string {
	buf := []byte(strings.Repeat(" ", colMeanMotion[1]))
	put := func(col [2]int, s string) {
		copy(buf[col[0]:col[1]], fmt.Sprintf("%*s", col[1]-col[0], s))
	}
	put(colInclination, strconv.FormatFloat(el.Inclination, 'f', 4, 64))
	put(colRAAN, strconv.FormatFloat(el.RightAscension, 'f', 4, 64))
	put(colEccentricity, fmt.Sprintf("%07d", int64(math.Round(el.Eccentricity*1e7))))
	put(colArgPerigee, strconv.FormatFloat(el.ArgumentOfPerigee, 'f', 4, 64))
	put(colMeanAnomaly, strconv.FormatFloat(el.MeanAnomaly, 'f', 4, 64))
	put(colMeanMotion, strconv.FormatFloat(el.MeanMotion, 'f', 8, 64))
	return string(buf)
}

func parseColumn(line string, col [2]int, prefix string) float64 {
	if len(line) < col[1] {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(prefix+strings.TrimSpace(line[col[0]:col[1]]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
