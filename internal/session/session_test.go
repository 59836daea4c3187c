package session

import (
	"context"
	"errors"
	"testing"

	"chatgate/internal/catalog"
	"chatgate/pkg/types"
)

func TestEnsureReadyCreatesOnce(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)
	ctx := context.Background()
	if err := s.EnsureReady(ctx, "m1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.EnsureReady(ctx, "m1"); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if got := b.creates(); got != 1 {
		t.Fatalf("expected 1 create, got %d", got)
	}
	if got := b.handle.reloads(); got != 0 {
		t.Fatalf("expected 0 reloads for idempotent ensure, got %d", got)
	}
}

func TestEnsureReadySwitchReloadsSameHandle(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)
	ctx := context.Background()
	if err := s.EnsureReady(ctx, "m1"); err != nil {
		t.Fatalf("ensure m1: %v", err)
	}
	if err := s.EnsureReady(ctx, "m2"); err != nil {
		t.Fatalf("ensure m2: %v", err)
	}
	if got := b.creates(); got != 1 {
		t.Fatalf("handle must be reused across switches, creates=%d", got)
	}
	if got := b.handle.reloads(); got != 1 {
		t.Fatalf("expected 1 reload for switch, got %d", got)
	}
	if cur := s.CurrentModel(); cur == nil || cur.ID != "m2" {
		t.Fatalf("expected current model m2, got %+v", cur)
	}
}

func TestEnsureReadyNoModelID(t *testing.T) {
	s := newTestSession(&fakeBackend{}, func(c *Config) { c.ModelID = "" })
	err := s.EnsureReady(context.Background(), "")
	if err == nil || !IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureReadyUnknownModelWithCatalog(t *testing.T) {
	cat := catalog.New([]types.ModelDescriptor{{ID: "m1"}})
	b := &fakeBackend{}
	s := newTestSession(b, func(c *Config) { c.Catalog = cat })
	err := s.EnsureReady(context.Background(), "nope")
	if err == nil || !IsModelUnknown(err) {
		t.Fatalf("expected model unknown error, got %v", err)
	}
	if b.creates() != 0 {
		t.Fatalf("backend must not be touched for unknown models")
	}
}

func TestEnsureReadyCreateFailure(t *testing.T) {
	b := &fakeBackend{createErr: errors.New("no vram")}
	pub := NewMemoryPublisher()
	s := newTestSession(b, func(c *Config) { c.Publisher = pub })
	err := s.EnsureReady(context.Background(), "m1")
	if err == nil || !IsInitialization(err) {
		t.Fatalf("expected initialization error, got %v", err)
	}
	if s.CurrentModel() != nil {
		t.Fatalf("no model must be recorded after failed create")
	}
	if len(pub.Named(EventLoadFailed)) != 1 {
		t.Fatalf("expected load_failed event, got %+v", pub.Events())
	}
	if s.Ready() {
		t.Fatalf("session must not be ready after failure")
	}
}

func TestEnsureReadyReloadFailureKeepsLoadedID(t *testing.T) {
	b := &fakeBackend{}
	s := newTestSession(b)
	ctx := context.Background()
	if err := s.EnsureReady(ctx, "m1"); err != nil {
		t.Fatalf("ensure m1: %v", err)
	}
	b.handle.reloadErr = errors.New("corrupt weights")
	err := s.EnsureReady(ctx, "m2")
	if err == nil || !IsReload(err) {
		t.Fatalf("expected reload error, got %v", err)
	}
	// No rollback, but the failed target is not recorded either.
	if cur := s.CurrentModel(); cur == nil || cur.ID != "m1" {
		t.Fatalf("expected loaded id to remain m1, got %+v", cur)
	}
}

func TestModelReadyEventEmitted(t *testing.T) {
	pub := NewMemoryPublisher()
	s := newTestSession(&fakeBackend{}, func(c *Config) { c.Publisher = pub })
	if err := s.EnsureReady(context.Background(), "m1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	ready := pub.Named(EventModelReady)
	if len(ready) != 1 || ready[0].ModelID != "m1" {
		t.Fatalf("expected one model_ready for m1, got %+v", ready)
	}
	if len(pub.Named(EventProgress)) == 0 {
		t.Fatalf("expected progress events during load")
	}
}

func TestSilentSuppressesFailureEvents(t *testing.T) {
	b := &fakeBackend{createErr: errors.New("boom")}
	pub := NewMemoryPublisher()
	s := newTestSession(b, func(c *Config) {
		c.Publisher = pub
		c.Silent = true
	})
	if err := s.EnsureReady(context.Background(), "m1"); err == nil {
		t.Fatalf("expected failure")
	}
	if len(pub.Named(EventLoadFailed)) != 0 {
		t.Fatalf("silent session must not publish failure notifications")
	}
	if len(pub.Named(EventProgress)) != 0 {
		t.Fatalf("silent session must not publish progress")
	}
}

func TestCurrentModelNilBeforeLoad(t *testing.T) {
	s := newTestSession(&fakeBackend{}, func(c *Config) { c.ModelID = "" })
	if cur := s.CurrentModel(); cur != nil {
		t.Fatalf("expected nil current model before load, got %+v", cur)
	}
}

func TestCurrentModelUsesCatalogDescriptor(t *testing.T) {
	cat := catalog.New([]types.ModelDescriptor{{ID: "m1", VRAMRequiredMB: 1200, ContextWindow: 8192}})
	s := newTestSession(&fakeBackend{}, func(c *Config) { c.Catalog = cat })
	if err := s.EnsureReady(context.Background(), "m1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	cur := s.CurrentModel()
	if cur == nil || cur.VRAMRequiredMB != 1200 || cur.ContextWindow != 8192 {
		t.Fatalf("expected catalog descriptor, got %+v", cur)
	}
}

func TestModelsListsCatalog(t *testing.T) {
	cat := catalog.New([]types.ModelDescriptor{{ID: "b-model"}, {ID: "a-model"}})
	s := newTestSession(&fakeBackend{}, func(c *Config) { c.Catalog = cat })
	out := s.Models()
	if len(out) != 2 || out[0].ID != "a-model" || out[1].ID != "b-model" {
		t.Fatalf("expected sorted catalog listing, got %+v", out)
	}
}

func TestStatusSnapshot(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	st := s.Status()
	if st.State != string(StateIdle) || st.LoadedModel != "" {
		t.Fatalf("unexpected initial status: %+v", st)
	}
	if err := s.EnsureReady(context.Background(), "m1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	st = s.Status()
	if st.State != string(StateReady) || st.LoadedModel != "m1" || st.LoadsTotal != 1 {
		t.Fatalf("unexpected status after load: %+v", st)
	}
}

func TestDefaultParamsRoundTrip(t *testing.T) {
	s := newTestSession(&fakeBackend{})
	temp := float32(0.3)
	s.SetDefaultParams(types.CompletionParams{Temperature: &temp})
	got := s.DefaultParams()
	if got.Temperature == nil || *got.Temperature != 0.3 {
		t.Fatalf("default params lost: %+v", got)
	}
}

func TestBroadcasterListenersBeforeEmission(t *testing.T) {
	b := NewBroadcaster()
	var seen []string
	b.Subscribe(func(e Event) { seen = append(seen, e.Name) })
	b.Publish(Event{Name: "first"})
	b.Subscribe(func(e Event) { seen = append(seen, "late:"+e.Name) })
	b.Publish(Event{Name: "second"})
	if len(seen) != 3 || seen[0] != "first" || seen[1] != "second" || seen[2] != "late:second" {
		t.Fatalf("unexpected delivery: %v", seen)
	}
}
