package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tablevox/tablevox/pkg/stt"
)

// fakeProvider hands out fakeStreams and remembers the most recent one so the
// test can drive it.
type fakeProvider struct {
	last *fakeStream
}

func (p *fakeProvider) StartStream(_ context.Context, _ stt.StreamConfig) (stt.SessionHandle, error) {
	p.last = newFakeStream()
	return p.last, nil
}

func TestManager_StartAndStop(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{}
	m := NewManager(ManagerConfig{
		STT:     prov,
		Session: Config{Restaurant: "Verdura"},
	})

	a, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.ID == "" {
		t.Error("session ID not assigned")
	}
	if m.Count() != 1 {
		t.Fatalf("Count = %d, want 1", m.Count())
	}
	if got, ok := m.Get(a.ID); !ok || got != a {
		t.Errorf("Get(%q) = (%v, %v)", a.ID, got, ok)
	}

	prov.last.say("hello")
	prov.last.pause()
	r := waitReply(t, a.Replies())
	if !strings.Contains(r.Text, "Welcome to Verdura!") {
		t.Errorf("reply = %q", r.Text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Stop(ctx, a.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count after stop = %d, want 0", m.Count())
	}
	if err := a.Err(); err != nil {
		t.Errorf("session exit error = %v, want nil for graceful stop", err)
	}

	if err := m.Stop(ctx, a.ID); err == nil {
		t.Error("stopping an unknown session should fail")
	}
}

func TestManager_StopAll(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{}
	m := NewManager(ManagerConfig{STT: prov, Session: Config{}})

	for range 3 {
		if _, err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if m.Count() != 3 {
		t.Fatalf("Count = %d, want 3", m.Count())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.StopAll(ctx)
	if m.Count() != 0 {
		t.Errorf("Count after StopAll = %d, want 0", m.Count())
	}
}

// A session whose stream ends on its own removes itself from the registry.
func TestManager_SelfRemovalOnStreamEnd(t *testing.T) {
	t.Parallel()

	prov := &fakeProvider{}
	m := NewManager(ManagerConfig{STT: prov, Session: Config{}})

	a, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	prov.last.Close()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after stream close")
	}

	// Removal happens in the run goroutine right before Done closes; give
	// the registry a moment.
	deadline := time.Now().Add(time.Second)
	for m.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0 after self-removal", m.Count())
	}
}
