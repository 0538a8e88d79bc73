// Package trajcache memoises sampled trajectories. A trajectory is a pure
// function of its TLE pair, sampling options and start instant, so entries
// never go stale; the cache is only bounded in size.
package trajcache

import (
	"container/list"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/signalsfoundry/orbitview/core"
)

// DefaultSize is used when New is given a non-positive capacity.
const DefaultSize = 256

// Recorder receives hit/miss notifications. *observability.OrbitCollector
// satisfies it.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()  {}
func (nopRecorder) CacheMiss() {}

// Key identifies one sampling request.
type Key uint64

// KeyFor hashes the sampling inputs. Start is truncated to resolution so that
// requests arriving within the same bucket share an entry; a zero resolution
// keys on the exact nanosecond.
func KeyFor(line1, line2 string, opts core.SampleOptions, resolution time.Duration) Key {
	start := opts.Start
	if resolution > 0 {
		start = start.Truncate(resolution)
	}

	d := xxhash.New()
	_, _ = d.WriteString(line1)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(line2)
	_, _ = d.WriteString("\x00")

	var buf [8]byte
	for _, v := range []uint64{
		uint64(opts.NumPoints),
		math.Float64bits(opts.OrbitFraction),
		uint64(opts.Rotation),
		uint64(opts.Propagator),
		uint64(opts.Frame),
		uint64(start.UnixNano()),
	} {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	return Key(d.Sum64())
}

// Result is a cached sampling outcome. Err is the sampler's error, normally
// a *core.DegenerateOrbitError alongside the fallback trajectory.
type Result struct {
	Trajectory core.Trajectory
	Err        error
}

type entry struct {
	key Key
	res Result
}

// Cache is a fixed-capacity LRU of trajectories. It is safe for concurrent
// use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
	rec      Recorder

	hits, misses uint64
}

// New creates a cache holding at most size trajectories. rec may be nil.
func New(size int, rec Recorder) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Cache{
		capacity: size,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, size),
		rec:      rec,
	}
}

// Get returns the cached result for k.
func (c *Cache) Get(k Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[k]
	if !ok {
		c.misses++
		c.rec.CacheMiss()
		return Result{}, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	c.rec.CacheHit()
	return el.Value.(*entry).res, true
}

// Put stores a result, evicting the least recently used entry when full.
func (c *Cache) Put(k Key, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[k]; ok {
		el.Value = &entry{key: k, res: res}
		c.ll.MoveToFront(el)
		return
	}
	c.items[k] = c.ll.PushFront(&entry{key: k, res: res})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// GetOrSample returns the cached trajectory for k or calls sample and caches
// its result. Concurrent misses on the same key may both sample; the last
// writer wins, which is harmless because results are deterministic.
func (c *Cache) GetOrSample(k Key, sample func() (core.Trajectory, error)) (res Result, hit bool) {
	if res, ok := c.Get(k); ok {
		return res, true
	}
	traj, err := sample()
	res = Result{Trajectory: traj, Err: err}
	c.Put(k, res)
	return res, false
}

// Len returns the number of cached trajectories.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns the lifetime hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
