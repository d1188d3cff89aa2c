package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"resume-builder/internal/shared/storage/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimitedRegistry(t *testing.T, backend kv.Store, limits RegistryOptions) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limits.Now = clock.Now
	reg := NewRegistryWithLimits(backend, testOptions(), limits)
	t.Cleanup(reg.Close)
	return reg, clock
}

func TestSweepClosesIdleWorkspaceAndReopenRestoresDraft(t *testing.T) {
	ctx := context.Background()
	reg, clock := newLimitedRegistry(t, kv.NewMemory(), RegistryOptions{IdleTTL: time.Minute})

	w, err := reg.Get(ctx, "guest:a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, _, err := w.SetField(ctx, "name", "Ada Lovelace"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	clock.Advance(30 * time.Second)
	if n := reg.Sweep(); n != 0 || reg.Len() != 1 {
		t.Fatalf("recently used workspace must stay open, closed=%d", n)
	}

	clock.Advance(time.Minute)
	if n := reg.Sweep(); n != 1 || reg.Len() != 0 {
		t.Fatalf("expected idle workspace closed, closed=%d open=%d", n, reg.Len())
	}

	reopened, err := reg.Get(ctx, "guest:a")
	if err != nil {
		t.Fatalf("Get after sweep: %v", err)
	}
	if reopened == w {
		t.Fatalf("expected a fresh workspace after eviction")
	}
	if got := reopened.Form().Fields.Name; got != "Ada Lovelace" {
		t.Fatalf("expected draft restored on reopen, got %q", got)
	}
}

func TestSweepKeepsStreamingWorkspace(t *testing.T) {
	ctx := context.Background()
	reg, clock := newLimitedRegistry(t, kv.NewMemory(), RegistryOptions{IdleTTL: time.Minute})

	w, _ := reg.Get(ctx, "guest:a")
	_, unsubscribe := w.Subscribe()

	clock.Advance(time.Hour)
	if n := reg.Sweep(); n != 0 {
		t.Fatalf("workspace with a subscriber must stay open")
	}

	unsubscribe()
	if n := reg.Sweep(); n != 1 {
		t.Fatalf("expected workspace closed once the stream detached")
	}
}

func TestManyGuestsStayBounded(t *testing.T) {
	ctx := context.Background()
	reg, clock := newLimitedRegistry(t, kv.NewMemory(), RegistryOptions{IdleTTL: time.Hour, MaxOpen: 50})

	for i := 0; i < 500; i++ {
		if _, err := reg.Get(ctx, fmt.Sprintf("guest:%d", i)); err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		clock.Advance(time.Millisecond)
	}
	if reg.Len() != 50 {
		t.Fatalf("expected open workspaces capped at 50, got %d", reg.Len())
	}
	first, _ := reg.Get(ctx, "guest:499")
	again, _ := reg.Get(ctx, "guest:499")
	if first != again {
		t.Fatalf("most recent workspace must survive capacity eviction")
	}
}

func TestRegistryFullWhenEveryWorkspaceIsBusy(t *testing.T) {
	ctx := context.Background()
	reg, _ := newLimitedRegistry(t, kv.NewMemory(), RegistryOptions{MaxOpen: 1})

	w, _ := reg.Get(ctx, "guest:a")
	_, unsubscribe := w.Subscribe()
	defer unsubscribe()

	if _, err := reg.Get(ctx, "guest:b"); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("expected ErrRegistryFull, got %v", err)
	}
}

type slowStore struct {
	kv.Store
	gate chan struct{}
}

func (s *slowStore) Get(ctx context.Context, key string) (string, bool, error) {
	<-s.gate
	return s.Store.Get(ctx, key)
}

func TestOpeningOneNamespaceDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	slow := &slowStore{Store: mem, gate: make(chan struct{})}
	reg, _ := newLimitedRegistry(t, slow, RegistryOptions{})

	done := make(chan error, 1)
	go func() {
		_, err := reg.Get(ctx, "guest:slow")
		done <- err
	}()

	close(slow.gate)
	if err := <-done; err != nil {
		t.Fatalf("Get: %v", err)
	}

	// guest:blocked stalls in its draft read; guest:slow is already open and must not wait for it.
	slow.gate = make(chan struct{})
	go func() {
		_, err := reg.Get(ctx, "guest:blocked")
		done <- err
	}()
	finished := make(chan struct{})
	go func() {
		if _, err := reg.Get(ctx, "guest:slow"); err != nil {
			t.Errorf("Get: %v", err)
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("open workspace lookup blocked behind another namespace's backend read")
	}
	close(slow.gate)
	if err := <-done; err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestConcurrentGetReturnsOneWorkspace(t *testing.T) {
	ctx := context.Background()
	reg, _ := newLimitedRegistry(t, kv.NewMemory(), RegistryOptions{})

	var wg sync.WaitGroup
	got := make([]*Workspace, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = reg.Get(ctx, "guest:a")
		}(i)
	}
	wg.Wait()
	for _, w := range got {
		if w == nil || w != got[0] {
			t.Fatalf("expected a single shared workspace")
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one open workspace, got %d", reg.Len())
	}
}
