package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/signalsfoundry/orbitview/model"
)

//go:embed sample_page.json
var samplePage []byte

// SamplePage returns the first page of the public API as captured in August
// 2024, for offline use and tests.
func SamplePage() (model.Page, error) {
	var coll collection
	if err := json.NewDecoder(bytes.NewReader(samplePage)).Decode(&coll); err != nil {
		return model.Page{}, errors.Wrap(err, "decode embedded sample page")
	}
	return coll.toPage(1), nil
}

// StaticSource serves a fixed satellite list with in-memory pagination.
type StaticSource struct {
	sats     []model.Satellite
	byID     map[int]model.Satellite
	pageSize int
	total    int
}

// NewStaticSource paginates sats in pages of pageSize (DefaultPageSize when
// non-positive). Order is preserved.
func NewStaticSource(sats []model.Satellite, pageSize int) *StaticSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &StaticSource{
		sats:     append([]model.Satellite(nil), sats...),
		byID:     make(map[int]model.Satellite, len(sats)),
		pageSize: pageSize,
		total:    len(sats),
	}
	for _, sat := range sats {
		s.byID[sat.ID] = sat
	}
	return s
}

// NewSampleSource wraps the embedded sample page.
func NewSampleSource() (*StaticSource, error) {
	p, err := SamplePage()
	if err != nil {
		return nil, err
	}
	return NewStaticSource(p.Satellites, p.PageSize), nil
}

// FetchPage returns page number page (clamped to 1). Pages past the end are
// empty.
func (s *StaticSource) FetchPage(ctx context.Context, page int) (model.Page, error) {
	if err := ctx.Err(); err != nil {
		return model.Page{}, err
	}
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * s.pageSize
	hi := lo + s.pageSize
	if lo > len(s.sats) {
		lo = len(s.sats)
	}
	if hi > len(s.sats) {
		hi = len(s.sats)
	}
	return model.Page{
		Number:     page,
		PageSize:   s.pageSize,
		TotalItems: s.total,
		Satellites: append([]model.Satellite(nil), s.sats[lo:hi]...),
		HasNext:    hi < len(s.sats),
		HasPrev:    page > 1,
	}, nil
}

// FetchSatellite looks up one entry by NORAD id.
func (s *StaticSource) FetchSatellite(ctx context.Context, id int) (model.Satellite, error) {
	if err := ctx.Err(); err != nil {
		return model.Satellite{}, err
	}
	sat, ok := s.byID[id]
	if !ok {
		return model.Satellite{}, errors.Wrapf(ErrSatelliteNotFound, "satellite %d", id)
	}
	return sat, nil
}
