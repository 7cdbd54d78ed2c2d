package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/authz-engine/policy-core/internal/parser"
	"github.com/authz-engine/policy-core/internal/policy"
)

func parseSet(t *testing.T, src string) *policy.Set {
	t.Helper()
	ps, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return ps
}

func TestCacheHitReturnsSameSet(t *testing.T) {
	c := NewPolicyCache(10, 0)
	src := `permit (principal, action, resource);`
	ps := parseSet(t, src)

	if _, ok := c.Get(src); ok {
		t.Fatal("empty cache should miss")
	}
	c.Put(src, ps)

	got, ok := c.Get(src)
	if !ok {
		t.Fatal("expected a hit")
	}
	if got != ps {
		t.Error("hit must return the identical set")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %f", stats.HitRate)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewPolicyCache(2, 0)
	sources := make([]string, 3)
	for i := range sources {
		sources[i] = fmt.Sprintf(`permit (principal == User::"u%d", action, resource);`, i)
		if i < 2 {
			c.Put(sources[i], parseSet(t, sources[i]))
		}
	}

	// Touch the first entry so the second becomes the eviction victim.
	if _, ok := c.Get(sources[0]); !ok {
		t.Fatal("expected a hit on sources[0]")
	}
	c.Put(sources[2], parseSet(t, sources[2]))

	if _, ok := c.Get(sources[1]); ok {
		t.Error("sources[1] should have been evicted")
	}
	if _, ok := c.Get(sources[0]); !ok {
		t.Error("sources[0] should have survived")
	}
	if _, ok := c.Get(sources[2]); !ok {
		t.Error("sources[2] should be present")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewPolicyCache(10, 10*time.Millisecond)
	src := `permit (principal, action, resource);`
	c.Put(src, parseSet(t, src))

	if _, ok := c.Get(src); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(src); ok {
		t.Error("expired entry should miss")
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("expired entry not removed, size = %d", size)
	}
}

func TestCacheDisabledByZeroCapacity(t *testing.T) {
	c := NewPolicyCache(0, 0)
	src := `permit (principal, action, resource);`
	c.Put(src, parseSet(t, src))

	if _, ok := c.Get(src); ok {
		t.Error("disabled cache must always miss")
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("size = %d", size)
	}
}

func TestCacheCleanupDropsExpired(t *testing.T) {
	c := NewPolicyCache(10, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		src := fmt.Sprintf(`permit (principal == User::"u%d", action, resource);`, i)
		c.Put(src, parseSet(t, src))
	}

	time.Sleep(20 * time.Millisecond)
	if removed := c.Cleanup(); removed != 3 {
		t.Errorf("Cleanup removed %d entries", removed)
	}
	if size := c.Stats().Size; size != 0 {
		t.Errorf("size = %d", size)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewPolicyCache(10, 0)
	src := `permit (principal, action, resource);`
	c.Put(src, parseSet(t, src))
	c.Clear()

	if _, ok := c.Get(src); ok {
		t.Error("cleared cache should miss")
	}
}
