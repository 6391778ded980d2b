package cacheutil

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyed_CachesAfterFirstFetch(t *testing.T) {
	c, err := NewKeyed[string, int](10, time.Hour)
	if err != nil {
		t.Fatalf("NewKeyed() error: %v", err)
	}

	var calls int32
	fetch := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.Get("a", fetch)
		if err != nil {
			t.Fatalf("Get() attempt %d: unexpected error: %v", i, err)
		}
		if v != 42 {
			t.Errorf("Get() = %d, want 42", v)
		}
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestKeyed_ExpiresAfterTTL(t *testing.T) {
	c, err := NewKeyed[string, int](10, time.Millisecond)
	if err != nil {
		t.Fatalf("NewKeyed() error: %v", err)
	}

	var calls int32
	fetch := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	first, _ := c.Get("a", fetch)
	time.Sleep(5 * time.Millisecond)
	second, _ := c.Get("a", fetch)

	if first == second {
		t.Errorf("expected a fresh fetch after TTL expiry, got same value %d twice", first)
	}
}

func TestKeyed_DedupsConcurrentFetches(t *testing.T) {
	c, err := NewKeyed[string, int](10, time.Hour)
	if err != nil {
		t.Fatalf("NewKeyed() error: %v", err)
	}

	var calls int32
	release := make(chan struct{})
	fetch := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, _ := c.Get("shared", fetch)
			results[idx] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let all goroutines queue up on the in-flight call
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch called %d times under concurrent access, want 1", calls)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("results[%d] = %d, want 7", i, v)
		}
	}
}

func TestKeyed_DoesNotCacheErrors(t *testing.T) {
	c, err := NewKeyed[string, int](10, time.Hour)
	if err != nil {
		t.Fatalf("NewKeyed() error: %v", err)
	}

	wantErr := errors.New("upstream unavailable")
	var calls int32
	fetch := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, wantErr
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Get("a", fetch); !errors.Is(err, wantErr) {
			t.Fatalf("Get() attempt %d: error = %v, want %v", i, err, wantErr)
		}
	}

	if calls != 3 {
		t.Errorf("fetch called %d times, want 3 (errors should not be cached)", calls)
	}
}

func TestKeyed_InvalidateForcesRefetch(t *testing.T) {
	c, err := NewKeyed[string, int](10, time.Hour)
	if err != nil {
		t.Fatalf("NewKeyed() error: %v", err)
	}

	var calls int32
	fetch := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	first, _ := c.Get("a", fetch)
	c.Invalidate("a")
	second, _ := c.Get("a", fetch)

	if first == second {
		t.Errorf("expected refetch after Invalidate, got same value %d twice", first)
	}
}
