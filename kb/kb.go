package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/orbitview/model"
)

// ErrSatelliteNotFound is returned when an ID is not in the catalog.
var ErrSatelliteNotFound = errors.New("satellite not found")

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventPageLoaded EventType = iota
	EventSelectionChanged
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type      EventType
	Page      int
	Satellite model.Satellite
}

// Catalog is the in-memory, thread-safe application state shared by the
// servers and the CLI: the satellites seen so far, the current page and the
// selected satellite. The propagation core never reads it; callers pass the
// selected TLE pair in explicitly.
type Catalog struct {
	mu sync.RWMutex

	satellites map[int]*model.Satellite
	pages      map[int][]int
	current    int
	selected   int

	subs map[int]func(Event)
	next int
}

// NewCatalog constructs an empty catalog positioned on page 1.
func NewCatalog() *Catalog {
	return &Catalog{
		satellites: make(map[int]*model.Satellite),
		pages:      make(map[int][]int),
		current:    1,
		subs:       make(map[int]func(Event)),
	}
}

// StorePage records a fetched page, upserting its satellites and making it
// the current page.
func (c *Catalog) StorePage(p model.Page) {
	c.mu.Lock()
	ids := make([]int, 0, len(p.Satellites))
	for i := range p.Satellites {
		sat := p.Satellites[i]
		c.satellites[sat.ID] = &sat
		ids = append(ids, sat.ID)
	}
	c.pages[p.Number] = ids
	c.current = p.Number
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventPageLoaded, Page: p.Number})
}

// Put upserts a single satellite without touching pages.
func (c *Catalog) Put(sat model.Satellite) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.satellites[sat.ID] = &sat
}

// Get returns a copy of the satellite with the given ID.
func (c *Catalog) Get(id int) (model.Satellite, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sat, ok := c.satellites[id]
	if !ok {
		return model.Satellite{}, fmt.Errorf("%w: %d", ErrSatelliteNotFound, id)
	}
	return *sat, nil
}

// Page returns the satellites of a stored page in fetch order, and whether
// the page has been stored.
func (c *Catalog) Page(number int) ([]model.Satellite, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.pages[number]
	if !ok {
		return nil, false
	}
	res := make([]model.Satellite, 0, len(ids))
	for _, id := range ids {
		if sat, ok := c.satellites[id]; ok {
			res = append(res, *sat)
		}
	}
	return res, true
}

// CurrentPage returns the page most recently stored.
func (c *Catalog) CurrentPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// List returns a snapshot of all known satellites sorted by ID.
func (c *Catalog) List() []model.Satellite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.Satellite, 0, len(c.satellites))
	for _, sat := range c.satellites {
		res = append(res, *sat)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of known satellites.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.satellites)
}

// Select marks a known satellite as selected and notifies subscribers.
func (c *Catalog) Select(id int) (model.Satellite, error) {
	c.mu.Lock()
	sat, ok := c.satellites[id]
	if !ok {
		c.mu.Unlock()
		return model.Satellite{}, fmt.Errorf("%w: %d", ErrSatelliteNotFound, id)
	}
	c.selected = id
	event := Event{Type: EventSelectionChanged, Page: c.current, Satellite: *sat}
	subs := c.snapshotSubs()
	c.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, event)
	return event.Satellite, nil
}

// Selected returns the selected satellite, if any.
func (c *Catalog) Selected() (model.Satellite, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == 0 {
		return model.Satellite{}, false
	}
	sat, ok := c.satellites[c.selected]
	if !ok {
		return model.Satellite{}, false
	}
	return *sat, true
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function that is safe to call more than once.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotSubs must be called with c.mu held.
func (c *Catalog) snapshotSubs() []func(Event) {
	keys := make([]int, 0, len(c.subs))
	for k := range c.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	subs := make([]func(Event), 0, len(keys))
	for _, k := range keys {
		subs = append(subs, c.subs[k])
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
