package trajcache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/orbitview/core"
)

const (
	issLine1 = "1 25544U 98067A   24228.93302811  .00023181  00000+0  41033-3 0  9993"
	issLine2 = "2 25544  51.6409  19.3451 0005404 204.9983 297.3069 15.50171321467816"
)

var frozenNow = time.Date(2024, 8, 16, 0, 0, 0, 0, time.UTC)

type countingRecorder struct {
	hits, misses int
}

func (r *countingRecorder) CacheHit()  { r.hits++ }
func (r *countingRecorder) CacheMiss() { r.misses++ }

func TestKeyForDistinguishesInputs(t *testing.T) {
	base := core.DefaultSampleOptions(frozenNow)
	k := KeyFor(issLine1, issLine2, base, time.Second)

	variants := map[string]core.SampleOptions{}
	o := base
	o.NumPoints = 50
	variants["points"] = o
	o = base
	o.OrbitFraction = 0.5
	variants["fraction"] = o
	o = base
	o.Rotation = core.RotationCompat
	variants["rotation"] = o
	o = base
	o.Propagator = core.PropagatorSGP4
	variants["propagator"] = o
	o = base
	o.Frame = core.FrameEarthFixed
	variants["frame"] = o
	o = base
	o.Start = frozenNow.Add(time.Minute)
	variants["start"] = o

	for name, opts := range variants {
		if KeyFor(issLine1, issLine2, opts, time.Second) == k {
			t.Fatalf("%s change did not alter the key", name)
		}
	}
	if KeyFor(issLine1+" ", issLine2, base, time.Second) == k {
		t.Fatalf("line change did not alter the key")
	}
}

func TestKeyForBucketsStartTime(t *testing.T) {
	a := core.DefaultSampleOptions(frozenNow.Add(100 * time.Millisecond))
	b := core.DefaultSampleOptions(frozenNow.Add(900 * time.Millisecond))
	if KeyFor(issLine1, issLine2, a, time.Second) != KeyFor(issLine1, issLine2, b, time.Second) {
		t.Fatalf("starts in the same second should share a key")
	}
	if KeyFor(issLine1, issLine2, a, 0) == KeyFor(issLine1, issLine2, b, 0) {
		t.Fatalf("zero resolution should key on the exact start")
	}
}

func TestGetOrSampleCachesResult(t *testing.T) {
	rec := &countingRecorder{}
	c := New(4, rec)
	opts := core.DefaultSampleOptions(frozenNow)
	k := KeyFor(issLine1, issLine2, opts, 0)

	calls := 0
	sample := func() (core.Trajectory, error) {
		calls++
		return core.Sample(issLine1, issLine2, opts)
	}

	first, hit := c.GetOrSample(k, sample)
	if first.Err != nil || hit {
		t.Fatalf("first call: err=%v hit=%v", first.Err, hit)
	}
	second, hit := c.GetOrSample(k, sample)
	if second.Err != nil || !hit {
		t.Fatalf("second call: err=%v hit=%v", second.Err, hit)
	}
	if calls != 1 {
		t.Fatalf("sampler called %d times, want 1", calls)
	}
	if len(first.Trajectory.Points) != len(second.Trajectory.Points) || first.Trajectory.Points[42] != second.Trajectory.Points[42] {
		t.Fatalf("cached trajectory differs from sampled one")
	}
	if rec.hits != 1 || rec.misses != 1 {
		t.Fatalf("recorder hits=%d misses=%d, want 1/1", rec.hits, rec.misses)
	}
	if h, m := c.Stats(); h != 1 || m != 1 {
		t.Fatalf("Stats = %d/%d, want 1/1", h, m)
	}
}

func TestCacheKeepsSamplingError(t *testing.T) {
	c := New(2, nil)
	opts := core.SampleOptions{NumPoints: 0, Start: frozenNow}
	k := KeyFor(issLine1, issLine2, opts, 0)

	c.GetOrSample(k, func() (core.Trajectory, error) { return core.Sample(issLine1, issLine2, opts) })
	res, ok := c.Get(k)
	if !ok || !res.Trajectory.Degenerate || !errors.Is(res.Err, core.ErrDegenerateOrbit) {
		t.Fatalf("Get = degenerate %v, err %v, ok %v", res.Trajectory.Degenerate, res.Err, ok)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, nil)
	c.Put(1, Result{Trajectory: core.Trajectory{Span: 1}})
	c.Put(2, Result{Trajectory: core.Trajectory{Span: 2}})
	if _, ok := c.Get(1); !ok {
		t.Fatalf("entry 1 missing")
	}
	c.Put(3, Result{Trajectory: core.Trajectory{Span: 3}})

	if _, ok := c.Get(2); ok {
		t.Fatalf("entry 2 should have been evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Fatalf("entry 1 should survive as most recently used")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	c.Put(1, Result{Trajectory: core.Trajectory{Span: 10}})
	if res, _ := c.Get(1); res.Trajectory.Span != 10 {
		t.Fatalf("Put should replace an existing entry")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(8, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := Key((i + j) % 12)
				c.GetOrSample(k, func() (core.Trajectory, error) {
					return core.Trajectory{Span: time.Duration(k)}, nil
				})
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}
