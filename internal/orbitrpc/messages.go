package orbitrpc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/model"
)

// Wire layout. Every message is a google.protobuf.Struct; keys are
// snake_case. Times are RFC 3339 strings, vectors are [x, y, z] lists.
//
//	ListSatellites   {page}                       -> {page, page_size, total_items, last_page, has_next, has_prev, satellites[]}
//	SelectSatellite  {satellite_id}               -> satellite
//	GetElements      selector                     -> {satellite_id, inclination, ..., epoch, norad_id, semi_major_axis_km, period_minutes}
//	GetTrajectory    selector + sampling + {frame, time} -> {points[], degenerate, reason, propagator, rotation, start, span_seconds, cached, radius_min, radius_max, frame}
//	GetPosition      selector + {rotation, propagator, time} -> {time, julian_date, ok, position, km, earth_fixed_km, propagator}
//
// A selector is either {satellite_id} or {line1, line2[, name]}; an empty
// selector refers to the currently selected satellite.
const (
	fieldPage          = "page"
	fieldPageSize      = "page_size"
	fieldTotalItems    = "total_items"
	fieldLastPage      = "last_page"
	fieldHasNext       = "has_next"
	fieldHasPrev       = "has_prev"
	fieldSatellites    = "satellites"
	fieldSatelliteID   = "satellite_id"
	fieldName          = "name"
	fieldLine1         = "line1"
	fieldLine2         = "line2"
	fieldDate          = "date"
	fieldNumPoints     = "num_points"
	fieldOrbitFraction = "orbit_fraction"
	fieldRotation      = "rotation"
	fieldPropagator    = "propagator"
	fieldTime          = "time"
	fieldPoints        = "points"
	fieldDegenerate    = "degenerate"
	fieldReason        = "reason"
	fieldStart         = "start"
	fieldSpanSeconds   = "span_seconds"
	fieldCached        = "cached"
	fieldRadiusMin     = "radius_min"
	fieldRadiusMax     = "radius_max"
	fieldOK            = "ok"
	fieldPosition      = "position"
	fieldKm            = "km"
	fieldEarthFixedKm  = "earth_fixed_km"
	fieldJulianDate    = "julian_date"
	fieldFrame         = "frame"
)

// Selector names the satellite a request is about.
type Selector struct {
	SatelliteID int
	Name        string
	Line1       string
	Line2       string
}

func (s Selector) hasLines() bool { return s.Line1 != "" || s.Line2 != "" }

func (s Selector) put(m map[string]any) {
	if s.SatelliteID != 0 {
		m[fieldSatelliteID] = s.SatelliteID
	}
	if s.Name != "" {
		m[fieldName] = s.Name
	}
	if s.Line1 != "" {
		m[fieldLine1] = s.Line1
	}
	if s.Line2 != "" {
		m[fieldLine2] = s.Line2
	}
}

// TrajectoryRequest asks for a sampled orbit segment. A nil NumPoints and a
// zero OrbitFraction leave the server defaults in place; NumPoints of zero
// asks for the degenerate fallback line.
type TrajectoryRequest struct {
	Selector
	NumPoints     *int32
	OrbitFraction float64
	Rotation      string
	Propagator    string
	// Frame is "inertial", "earth_fixed" or empty for the propagator's own.
	Frame string
	// Time is the first sample instant; zero means the server clock.
	Time time.Time
}

// TrajectoryResponse carries the sampled points in Earth radii.
type TrajectoryResponse struct {
	SatelliteID int
	Points      [][3]float64
	Degenerate  bool
	Reason      string
	Propagator  string
	Rotation    string
	Frame       string
	Start       time.Time
	Span        time.Duration
	Cached      bool
	RadiusMin   float64
	RadiusMax   float64
}

// PositionRequest asks for a single position.
type PositionRequest struct {
	Selector
	Rotation   string
	Propagator string
	Time       time.Time
}

// PositionResponse is one position in Earth radii and kilometres. When OK is
// false the propagator had no usable position and Position is the origin.
type PositionResponse struct {
	Time         time.Time
	JulianDate   float64
	OK           bool
	Position     [3]float64
	Km           [3]float64
	EarthFixedKm [3]float64
	Propagator   string
}

// ElementsResponse is a parsed element set plus derived quantities.
type ElementsResponse struct {
	SatelliteID     int
	Elements        core.OrbitalElements
	SemiMajorAxisKm float64
	PeriodMinutes   float64
}

// --- encoding ---

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func vecList(v [3]float64) []any {
	return []any{v[0], v[1], v[2]}
}

func satelliteFields(sat model.Satellite) map[string]any {
	m := map[string]any{
		fieldSatelliteID: sat.ID,
		fieldName:        sat.Name,
		fieldLine1:       sat.Line1,
		fieldLine2:       sat.Line2,
	}
	if !sat.Date.IsZero() {
		m[fieldDate] = formatTime(sat.Date)
	}
	return m
}

func encodeSatellite(sat model.Satellite) (*structpb.Struct, error) {
	return newStruct(satelliteFields(sat))
}

func encodePage(p model.Page) (*structpb.Struct, error) {
	sats := make([]any, 0, len(p.Satellites))
	for _, sat := range p.Satellites {
		sats = append(sats, satelliteFields(sat))
	}
	return newStruct(map[string]any{
		fieldPage:       p.Number,
		fieldPageSize:   p.PageSize,
		fieldTotalItems: p.TotalItems,
		fieldLastPage:   p.LastPage(),
		fieldHasNext:    p.HasNext,
		fieldHasPrev:    p.HasPrev,
		fieldSatellites: sats,
	})
}

func encodeElements(r ElementsResponse) (*structpb.Struct, error) {
	el := r.Elements
	m := map[string]any{
		"inclination":         el.Inclination,
		"right_ascension":     el.RightAscension,
		"eccentricity":        el.Eccentricity,
		"argument_of_perigee": el.ArgumentOfPerigee,
		"mean_anomaly":        el.MeanAnomaly,
		"mean_motion":         el.MeanMotion,
		"norad_id":            el.NoradID,
		"semi_major_axis_km":  r.SemiMajorAxisKm,
		"period_minutes":      r.PeriodMinutes,
	}
	if r.SatelliteID != 0 {
		m[fieldSatelliteID] = r.SatelliteID
	}
	if !el.Epoch.IsZero() {
		m["epoch"] = formatTime(el.Epoch)
	}
	return newStruct(m)
}

func encodeTrajectory(r TrajectoryResponse) (*structpb.Struct, error) {
	points := make([]any, len(r.Points))
	for i, p := range r.Points {
		points[i] = vecList(p)
	}
	m := map[string]any{
		fieldPoints:      points,
		fieldNumPoints:   len(r.Points),
		fieldDegenerate:  r.Degenerate,
		fieldPropagator:  r.Propagator,
		fieldRotation:    r.Rotation,
		fieldFrame:       r.Frame,
		fieldStart:       formatTime(r.Start),
		fieldSpanSeconds: r.Span.Seconds(),
		fieldCached:      r.Cached,
		fieldRadiusMin:   r.RadiusMin,
		fieldRadiusMax:   r.RadiusMax,
	}
	if r.SatelliteID != 0 {
		m[fieldSatelliteID] = r.SatelliteID
	}
	if r.Reason != "" {
		m[fieldReason] = r.Reason
	}
	return newStruct(m)
}

func encodePosition(r PositionResponse) (*structpb.Struct, error) {
	return newStruct(map[string]any{
		fieldTime:         formatTime(r.Time),
		fieldJulianDate:   r.JulianDate,
		fieldOK:           r.OK,
		fieldPosition:     vecList(r.Position),
		fieldKm:           vecList(r.Km),
		fieldEarthFixedKm: vecList(r.EarthFixedKm),
		fieldPropagator:   r.Propagator,
	})
}

func encodeTrajectoryRequest(r TrajectoryRequest) (*structpb.Struct, error) {
	m := map[string]any{}
	r.Selector.put(m)
	if r.NumPoints != nil {
		m[fieldNumPoints] = int(*r.NumPoints)
	}
	if r.OrbitFraction != 0 {
		m[fieldOrbitFraction] = r.OrbitFraction
	}
	if r.Rotation != "" {
		m[fieldRotation] = r.Rotation
	}
	if r.Propagator != "" {
		m[fieldPropagator] = r.Propagator
	}
	if r.Frame != "" {
		m[fieldFrame] = r.Frame
	}
	if !r.Time.IsZero() {
		m[fieldTime] = formatTime(r.Time)
	}
	return newStruct(m)
}

func encodePositionRequest(r PositionRequest) (*structpb.Struct, error) {
	m := map[string]any{}
	r.Selector.put(m)
	if r.Rotation != "" {
		m[fieldRotation] = r.Rotation
	}
	if r.Propagator != "" {
		m[fieldPropagator] = r.Propagator
	}
	if !r.Time.IsZero() {
		m[fieldTime] = formatTime(r.Time)
	}
	return newStruct(m)
}

// --- decoding ---

func field(s *structpb.Struct, key string) (*structpb.Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func numberField(s *structpb.Struct, key string) (float64, bool, error) {
	v, ok := field(s, key)
	if !ok {
		return 0, false, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	return n.NumberValue, true, nil
}

func intField(s *structpb.Struct, key string) (int, bool, error) {
	f, ok, err := numberField(s, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidRequest, key, f)
	}
	return int(f), true, nil
}

func stringField(s *structpb.Struct, key string) (string, bool, error) {
	v, ok := field(s, key)
	if !ok {
		return "", false, nil
	}
	str, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	return str.StringValue, true, nil
}

func boolField(s *structpb.Struct, key string) bool {
	v, ok := field(s, key)
	return ok && v.GetBoolValue()
}

func timeField(s *structpb.Struct, key string) (time.Time, bool, error) {
	raw, ok, err := stringField(s, key)
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s must be RFC 3339: %v", ErrInvalidRequest, key, err)
	}
	return t.UTC(), true, nil
}

func vecField(s *structpb.Struct, key string) [3]float64 {
	var out [3]float64
	v, ok := field(s, key)
	if !ok {
		return out
	}
	return vecValue(v)
}

func vecValue(v *structpb.Value) [3]float64 {
	var out [3]float64
	vals := v.GetListValue().GetValues()
	for i := 0; i < len(vals) && i < 3; i++ {
		out[i] = vals[i].GetNumberValue()
	}
	return out
}

func decodeSelector(s *structpb.Struct) (Selector, error) {
	var sel Selector
	var err error
	if sel.SatelliteID, _, err = intField(s, fieldSatelliteID); err != nil {
		return Selector{}, err
	}
	if sel.Name, _, err = stringField(s, fieldName); err != nil {
		return Selector{}, err
	}
	if sel.Line1, _, err = stringField(s, fieldLine1); err != nil {
		return Selector{}, err
	}
	if sel.Line2, _, err = stringField(s, fieldLine2); err != nil {
		return Selector{}, err
	}
	if sel.SatelliteID < 0 {
		return Selector{}, fmt.Errorf("%w: satellite_id must be positive", ErrInvalidRequest)
	}
	if sel.hasLines() && (sel.Line1 == "" || sel.Line2 == "") {
		return Selector{}, fmt.Errorf("%w: line1 and line2 must be given together", ErrInvalidRequest)
	}
	return sel, nil
}

func decodeSatellite(s *structpb.Struct) model.Satellite {
	id, _, _ := intField(s, fieldSatelliteID)
	name, _, _ := stringField(s, fieldName)
	line1, _, _ := stringField(s, fieldLine1)
	line2, _, _ := stringField(s, fieldLine2)
	date, _, _ := timeField(s, fieldDate)
	return model.Satellite{ID: id, Name: name, Line1: line1, Line2: line2, Date: date}
}

func decodePage(s *structpb.Struct) model.Page {
	number, _, _ := intField(s, fieldPage)
	size, _, _ := intField(s, fieldPageSize)
	total, _, _ := intField(s, fieldTotalItems)
	p := model.Page{
		Number:     number,
		PageSize:   size,
		TotalItems: total,
		HasNext:    boolField(s, fieldHasNext),
		HasPrev:    boolField(s, fieldHasPrev),
	}
	if v, ok := field(s, fieldSatellites); ok {
		for _, item := range v.GetListValue().GetValues() {
			p.Satellites = append(p.Satellites, decodeSatellite(item.GetStructValue()))
		}
	}
	return p
}

func decodeElements(s *structpb.Struct) ElementsResponse {
	num := func(key string) float64 {
		f, _, _ := numberField(s, key)
		return f
	}
	id, _, _ := intField(s, fieldSatelliteID)
	norad, _, _ := intField(s, "norad_id")
	epoch, _, _ := timeField(s, "epoch")
	return ElementsResponse{
		SatelliteID: id,
		Elements: core.OrbitalElements{
			Inclination:       num("inclination"),
			RightAscension:    num("right_ascension"),
			Eccentricity:      num("eccentricity"),
			ArgumentOfPerigee: num("argument_of_perigee"),
			MeanAnomaly:       num("mean_anomaly"),
			MeanMotion:        num("mean_motion"),
			Epoch:             epoch,
			NoradID:           norad,
		},
		SemiMajorAxisKm: num("semi_major_axis_km"),
		PeriodMinutes:   num("period_minutes"),
	}
}

func decodeTrajectory(s *structpb.Struct) TrajectoryResponse {
	id, _, _ := intField(s, fieldSatelliteID)
	reason, _, _ := stringField(s, fieldReason)
	prop, _, _ := stringField(s, fieldPropagator)
	rot, _, _ := stringField(s, fieldRotation)
	frame, _, _ := stringField(s, fieldFrame)
	start, _, _ := timeField(s, fieldStart)
	span, _, _ := numberField(s, fieldSpanSeconds)
	lo, _, _ := numberField(s, fieldRadiusMin)
	hi, _, _ := numberField(s, fieldRadiusMax)

	r := TrajectoryResponse{
		SatelliteID: id,
		Degenerate:  boolField(s, fieldDegenerate),
		Reason:      reason,
		Propagator:  prop,
		Rotation:    rot,
		Frame:       frame,
		Start:       start,
		Span:        time.Duration(span * float64(time.Second)),
		Cached:      boolField(s, fieldCached),
		RadiusMin:   lo,
		RadiusMax:   hi,
	}
	if v, ok := field(s, fieldPoints); ok {
		vals := v.GetListValue().GetValues()
		r.Points = make([][3]float64, len(vals))
		for i, p := range vals {
			r.Points[i] = vecValue(p)
		}
	}
	return r
}

func decodePosition(s *structpb.Struct) PositionResponse {
	t, _, _ := timeField(s, fieldTime)
	prop, _, _ := stringField(s, fieldPropagator)
	jd, _, _ := numberField(s, fieldJulianDate)
	return PositionResponse{
		Time:         t,
		JulianDate:   jd,
		OK:           boolField(s, fieldOK),
		Position:     vecField(s, fieldPosition),
		Km:           vecField(s, fieldKm),
		EarthFixedKm: vecField(s, fieldEarthFixedKm),
		Propagator:   prop,
	}
}
