package speech

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fjelby/sayboard/internal/audio"
	"github.com/fjelby/sayboard/internal/queue"
	"github.com/fjelby/sayboard/internal/store"
	"github.com/fjelby/sayboard/internal/synth"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	recs   map[int64]*store.Utterance
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[int64]*store.Utterance)}
}

func (f *fakeStore) FindUtterance(text, voice string, pitch, rate float64, language string) (*store.Utterance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *store.Utterance
	for _, u := range f.recs {
		if u.Text == text && u.Voice == voice && u.Pitch == pitch && u.Rate == rate && u.Language == language {
			if best == nil || u.ID > best.ID {
				best = u
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (f *fakeStore) CreatePendingUtterance(text, voice string, pitch, rate float64, language string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.recs[f.nextID] = &store.Utterance{
		ID: f.nextID, Text: text, Voice: voice, Pitch: pitch, Rate: rate, Language: language,
		CreatedAt: time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeStore) AttachArtifact(id int64, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.recs[id]
	if !ok {
		return store.ErrNotFound
	}
	u.AudioPath = &path
	return nil
}

func (f *fakeStore) DeleteUtterance(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	audio []byte
	err   error
	block chan struct{} // when set, Synthesize waits for it to close
}

func (p *fakeProvider) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	p.mu.Lock()
	p.calls++
	block := p.block
	p.mu.Unlock()
	if block != nil {
		<-block
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.audio != nil {
		return p.audio, nil
	}
	return []byte("RIFFpcm"), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type blockedProvider struct{}

func (blockedProvider) Synthesize(ctx context.Context, req synth.Request) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type funcPlayer struct{ fn func(string) error }

func (p funcPlayer) Play(path string) error { return p.fn(path) }

type harness struct {
	store    *fakeStore
	provider *fakeProvider
	player   *audio.MockPlayer
	orch     *Orchestrator
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		store:    newFakeStore(),
		provider: &fakeProvider{},
		player:   audio.NewMockPlayer(),
	}
	q := queue.NewSerial("speech", 8)
	t.Cleanup(q.Close)

	opts := Options{
		Store:       h.store,
		Provider:    h.provider,
		Player:      h.player,
		Queue:       q,
		ArtifactDir: t.TempDir(),
		Online:      func() bool { return true },
	}
	if mutate != nil {
		mutate(&opts)
	}
	orch, err := NewOrchestrator(opts)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	h.orch = orch
	return h
}

func speakWait(t *testing.T, o *Orchestrator, req Request) Result {
	t.Helper()
	ch, err := o.Speak(req)
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func baseRequest() Request {
	return Request{Text: "Hello", Voice: "da-DK-Jeppe", Pitch: 1.0, Rate: 1.0, Language: "da-DK"}
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	h := newHarness(t, nil)
	for _, text := range []string{"", "   ", "\n\t "} {
		if _, err := h.orch.Speak(Request{Text: text, Voice: "v"}); !errors.Is(err, ErrEmptyText) {
			t.Errorf("text %q: expected ErrEmptyText, got %v", text, err)
		}
	}
	if h.store.count() != 0 {
		t.Error("rejected request must not create records")
	}
	if h.provider.callCount() != 0 {
		t.Error("rejected request must not reach the provider")
	}
}

func TestSpeakRejectsMissingVoice(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.orch.Speak(Request{Text: "hi"}); !errors.Is(err, ErrNoVoice) {
		t.Errorf("expected ErrNoVoice, got %v", err)
	}
}

func TestSpeakRejectsOffline(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Online = func() bool { return false } })
	if _, err := h.orch.Speak(baseRequest()); !errors.Is(err, ErrOffline) {
		t.Errorf("expected ErrOffline, got %v", err)
	}

	// An absent connectivity signal counts as offline.
	h2 := newHarness(t, func(o *Options) { o.Online = nil })
	if _, err := h2.orch.Speak(baseRequest()); !errors.Is(err, ErrOffline) {
		t.Errorf("nil check: expected ErrOffline, got %v", err)
	}
}

func TestSpeakSynthesizesThenReplays(t *testing.T) {
	h := newHarness(t, nil)

	first := speakWait(t, h.orch, baseRequest())
	if first.Err != nil {
		t.Fatalf("first speak failed: %v", first.Err)
	}
	if first.CacheHit {
		t.Error("first speak must be a miss")
	}
	if _, err := os.Stat(first.AudioPath); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if h.provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", h.provider.callCount())
	}

	second := speakWait(t, h.orch, baseRequest())
	if second.Err != nil {
		t.Fatalf("second speak failed: %v", second.Err)
	}
	if !second.CacheHit {
		t.Error("second identical speak must hit the cache")
	}
	if second.AudioPath != first.AudioPath {
		t.Errorf("replay must use the same artifact: %q vs %q", second.AudioPath, first.AudioPath)
	}
	if h.provider.callCount() != 1 {
		t.Errorf("replay must not call the provider, got %d calls", h.provider.callCount())
	}
	if played := h.player.Played(); len(played) != 2 {
		t.Errorf("expected 2 playbacks, got %d", len(played))
	}
}

func TestSpeakDistinguishesMinimalPitchAndRateDeltas(t *testing.T) {
	h := newHarness(t, nil)

	reqs := []Request{
		baseRequest(),
		{Text: "Hello", Voice: "da-DK-Jeppe", Pitch: 1.0000001, Rate: 1.0, Language: "da-DK"},
		{Text: "Hello", Voice: "da-DK-Jeppe", Pitch: 1.0, Rate: 0.9999999, Language: "da-DK"},
	}
	for _, req := range reqs {
		if res := speakWait(t, h.orch, req); res.Err != nil {
			t.Fatalf("speak %+v failed: %v", req, res.Err)
		}
	}
	if h.provider.callCount() != 3 {
		t.Errorf("each delta must synthesize independently, got %d calls", h.provider.callCount())
	}
	if h.store.count() != 3 {
		t.Errorf("expected 3 distinct records, got %d", h.store.count())
	}
}

func TestSpeakSelfHealsMissingArtifact(t *testing.T) {
	h := newHarness(t, nil)

	first := speakWait(t, h.orch, baseRequest())
	if first.Err != nil {
		t.Fatalf("first speak failed: %v", first.Err)
	}
	if err := os.Remove(first.AudioPath); err != nil {
		t.Fatalf("could not remove artifact: %v", err)
	}

	second := speakWait(t, h.orch, baseRequest())
	if second.Err != nil {
		t.Fatalf("speak after eviction failed: %v", second.Err)
	}
	if second.CacheHit {
		t.Error("a dangling record must degrade to a miss")
	}
	if h.provider.callCount() != 2 {
		t.Errorf("expected re-synthesis, got %d provider calls", h.provider.callCount())
	}
	if h.store.count() != 1 {
		t.Errorf("stale record must be evicted, have %d records", h.store.count())
	}
	if _, err := os.Stat(second.AudioPath); err != nil {
		t.Errorf("fresh artifact not written: %v", err)
	}
}

func TestSpeakProviderFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.err = errors.New("401 unauthorized")

	res := speakWait(t, h.orch, baseRequest())
	if KindOf(res.Err) != KindProvider {
		t.Errorf("expected provider error, got %v", res.Err)
	}
	if h.store.count() != 0 {
		t.Errorf("pending record must be cleaned up, have %d", h.store.count())
	}
	if played := h.player.Played(); len(played) != 0 {
		t.Errorf("nothing should play after failure, got %v", played)
	}
}

func TestSpeakTimeoutSurfacesConnectivity(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Provider = blockedProvider{}
		o.SynthesisTimeout = 20 * time.Millisecond
	})

	res := speakWait(t, h.orch, baseRequest())
	if KindOf(res.Err) != KindConnectivity {
		t.Errorf("expected connectivity error on timeout, got %v", res.Err)
	}
	if h.store.count() != 0 {
		t.Errorf("no dangling pending row after timeout, have %d", h.store.count())
	}
}

func TestSpeakPlaybackErrorKeepsRecord(t *testing.T) {
	h := newHarness(t, nil)
	h.player.FailNextPlay(errors.New("device busy"))

	res := speakWait(t, h.orch, baseRequest())
	if KindOf(res.Err) != KindPlayback {
		t.Errorf("expected playback error, got %v", res.Err)
	}
	if h.store.count() != 1 {
		t.Errorf("transient playback failure must not evict, have %d records", h.store.count())
	}

	// The artifact is intact, so a retry replays it without the provider.
	retry := speakWait(t, h.orch, baseRequest())
	if retry.Err != nil {
		t.Fatalf("retry failed: %v", retry.Err)
	}
	if !retry.CacheHit || h.provider.callCount() != 1 {
		t.Error("retry after transient failure must be a cache hit")
	}
}

func TestSpeakMissingFileAtPlaybackEvicts(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Player = funcPlayer{fn: func(string) error { return fs.ErrNotExist }}
	})

	res := speakWait(t, h.orch, baseRequest())
	if KindOf(res.Err) != KindArtifact {
		t.Errorf("expected artifact error, got %v", res.Err)
	}
	if h.store.count() != 0 {
		t.Errorf("vanished artifact must evict its record, have %d", h.store.count())
	}
}

func TestSpeakCoalescesIdenticalInFlightRequests(t *testing.T) {
	h := newHarness(t, nil)
	release := make(chan struct{})
	h.provider.block = release

	first, err := h.orch.Speak(baseRequest())
	if err != nil {
		t.Fatalf("first Speak failed: %v", err)
	}
	second, err := h.orch.Speak(baseRequest())
	if err != nil {
		t.Fatalf("second Speak failed: %v", err)
	}
	close(release)

	res1, res2 := <-first, <-second
	if res1.Err != nil || res2.Err != nil {
		t.Fatalf("speaks failed: %v / %v", res1.Err, res2.Err)
	}
	if res1.AudioPath != res2.AudioPath {
		t.Errorf("coalesced requests must share the artifact: %q vs %q", res1.AudioPath, res2.AudioPath)
	}
	if h.provider.callCount() != 1 {
		t.Errorf("coalesced requests must synthesize once, got %d calls", h.provider.callCount())
	}
	if h.store.count() != 1 {
		t.Errorf("coalesced requests must create one record, got %d", h.store.count())
	}
}

func TestSpeakWarmsGateBeforePlayback(t *testing.T) {
	var order []string
	var mu sync.Mutex

	h := newHarness(t, func(o *Options) {
		o.Gate = gateFunc(func() {
			mu.Lock()
			order = append(order, "gate")
			mu.Unlock()
		})
		o.Player = funcPlayer{fn: func(string) error {
			mu.Lock()
			order = append(order, "play")
			mu.Unlock()
			return nil
		}}
	})

	if res := speakWait(t, h.orch, baseRequest()); res.Err != nil {
		t.Fatalf("speak failed: %v", res.Err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "gate" || order[1] != "play" {
		t.Errorf("gate must run before playback, got %v", order)
	}
}

type gateFunc func()

func (g gateFunc) EnsureReady() { g() }

func TestSpeakArtifactWriteFailureLeavesNoRecord(t *testing.T) {
	// Point the artifact dir below a regular file so creating it fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, func(o *Options) {
		o.ArtifactDir = filepath.Join(blocker, "audio")
	})

	res := speakWait(t, h.orch, baseRequest())
	if KindOf(res.Err) != KindArtifact {
		t.Errorf("expected artifact error, got %v", res.Err)
	}
	if h.store.count() != 0 {
		t.Errorf("pending record must be cleaned up, have %d", h.store.count())
	}
}
