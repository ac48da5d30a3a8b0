package interrupt

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func event(kind Kind, id string) Event {
	return Event{
		ID:         id,
		Kind:       kind,
		ReceivedAt: time.Now(),
	}
}

func TestPublishAndDrainPreserveOrder(t *testing.T) {
	c := NewChannel(8)

	if err := c.Publish(event(KindMotionAlert, "a")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := c.Publish(event(KindDeviceError, "b")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := c.Publish(event(KindMotionAlert, "c")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := c.Drain()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Drain() returned %d events, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Drain()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}

	if second := c.Drain(); len(second) != 0 {
		t.Errorf("second Drain() returned %d events, want 0", len(second))
	}
}

func TestDrainEmptyChannel(t *testing.T) {
	c := NewChannel(4)
	if got := c.Drain(); len(got) != 0 {
		t.Errorf("Drain() on empty channel = %v, want empty", got)
	}
}

func TestOverflowCoalescesSameKind(t *testing.T) {
	c := NewChannel(3)

	// One device-error published before the flood must survive.
	if err := c.Publish(event(KindDeviceError, "err-1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := c.Publish(event(KindMotionAlert, fmt.Sprintf("motion-%d", i))); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	got := c.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain() returned %d events, want buffer size 3", len(got))
	}

	// The foreign kind is preserved, and the motion events are the most recent.
	if got[0].ID != "err-1" {
		t.Errorf("got[0].ID = %q, want preserved err-1", got[0].ID)
	}
	if got[1].ID != "motion-8" || got[2].ID != "motion-9" {
		t.Errorf("kept motion events = %q, %q, want motion-8, motion-9", got[1].ID, got[2].ID)
	}

	if dropped := c.Dropped()[KindMotionAlert]; dropped != 8 {
		t.Errorf("Dropped()[motion-alert] = %d, want 8", dropped)
	}
	if dropped := c.Dropped()[KindDeviceError]; dropped != 0 {
		t.Errorf("Dropped()[device-error] = %d, want 0", dropped)
	}
	if total := c.DroppedTotal(); total != 8 {
		t.Errorf("DroppedTotal() = %d, want 8", total)
	}
}

func TestOverflowWithNoSameKindEvictsOldest(t *testing.T) {
	c := NewChannel(2)

	if err := c.Publish(event(KindMotionAlert, "a")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := c.Publish(event(KindDeviceError, "b")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := c.Publish(event(KindDiscoveryChange, "c")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := c.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d events, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("Drain() = %q, %q, want b, c (oldest overall evicted)", got[0].ID, got[1].ID)
	}
	if dropped := c.Dropped()[KindMotionAlert]; dropped != 1 {
		t.Errorf("Dropped()[motion-alert] = %d, want 1", dropped)
	}
}

func TestCloseRejectsPublishButAllowsDrain(t *testing.T) {
	c := NewChannel(4)

	if err := c.Publish(event(KindMotionAlert, "a")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	c.Close()
	c.Close() // idempotent

	if err := c.Publish(event(KindMotionAlert, "b")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() after Close = %v, want ErrClosed", err)
	}

	got := c.Drain()
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("Drain() after Close = %v, want the buffered event", got)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindMotionAlert, KindDeviceError, KindDiscoveryChange} {
		if !k.Valid() {
			t.Errorf("Kind(%q).Valid() = false, want true", k)
		}
	}
	if Kind("bogus").Valid() {
		t.Error(`Kind("bogus").Valid() = true, want false`)
	}
}

func TestPublishNeverBlocksConcurrently(t *testing.T) {
	c := NewChannel(4)

	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				kind := KindMotionAlert
				if n%2 == 0 {
					kind = KindDeviceError
				}
				if err := c.Publish(event(kind, fmt.Sprintf("%d-%d", n, j))); err != nil {
					t.Errorf("Publish() error = %v", err)
					return
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishers blocked; Publish must never block")
	}

	if got := c.Len(); got > 4 {
		t.Errorf("Len() = %d, want at most buffer size 4", got)
	}
}
