package speech

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fjelby/sayboard/internal/queue"
	"github.com/fjelby/sayboard/internal/store"
	"github.com/fjelby/sayboard/internal/synth"
)

// RecordStore is the slice of the persistence layer the pipeline needs.
// *store.Store satisfies it.
type RecordStore interface {
	FindUtterance(text, voice string, pitch, rate float64, language string) (*store.Utterance, error)
	CreatePendingUtterance(text, voice string, pitch, rate float64, language string) (int64, error)
	AttachArtifact(id int64, path string) error
	DeleteUtterance(id int64) error
}

// Provider performs the external synthesis call. *synth.Client satisfies
// it.
type Provider interface {
	Synthesize(ctx context.Context, req synth.Request) ([]byte, error)
}

// Player plays a local audio artifact to completion.
type Player interface {
	Play(path string) error
}

// Gate readies the output route before playback starts.
type Gate interface {
	EnsureReady()
}

// Request is one speak request as it arrives from the CLI.
type Request struct {
	Text     string
	Voice    string
	Pitch    float64
	Rate     float64
	Language string
}

// Result is delivered on the channel returned by Speak once the request
// has finished, in either direction.
type Result struct {
	AudioPath string
	CacheHit  bool
	Err       error
}

// Options configures an Orchestrator. Store, Provider, Player and Queue
// are required.
type Options struct {
	Store    RecordStore
	Provider Provider
	Player   Player
	Gate     Gate

	// Queue serializes speak requests; no two run concurrently.
	Queue *queue.Serial

	// ArtifactDir is the directory owned by the cache for audio files.
	ArtifactDir string

	// Online reports network connectivity. A nil check means the signal
	// is unavailable, which counts as offline.
	Online func() bool

	// SynthesisTimeout bounds one provider round trip. Defaults to 30s.
	SynthesisTimeout time.Duration

	Logger *log.Logger
}

// Orchestrator runs speak requests through cache lookup, synthesis,
// persistence and playback. Identical requests arriving while one is in
// flight coalesce onto the leader's result instead of synthesizing
// twice.
type Orchestrator struct {
	store    RecordStore
	provider Provider
	player   Player
	gate     Gate
	queue    *queue.Serial
	dir      string
	online   func() bool
	timeout  time.Duration
	log      *log.Logger

	mu       sync.Mutex
	inflight map[Fingerprint][]chan Result
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.Provider == nil || opts.Player == nil || opts.Queue == nil {
		return nil, errors.New("speech: store, provider, player and queue are required")
	}
	if opts.ArtifactDir == "" {
		return nil, errors.New("speech: artifact directory is required")
	}
	timeout := opts.SynthesisTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		store:    opts.Store,
		provider: opts.Provider,
		player:   opts.Player,
		gate:     opts.Gate,
		queue:    opts.Queue,
		dir:      opts.ArtifactDir,
		online:   opts.Online,
		timeout:  timeout,
		log:      logger.With("component", "speech"),
		inflight: make(map[Fingerprint][]chan Result),
	}, nil
}

// Speak validates the request and queues it. Validation failures return
// immediately with no queue work and no persistence side effects. On
// success the returned channel delivers exactly one Result; a request
// identical to one already in flight shares that request's Result.
func (o *Orchestrator) Speak(req Request) (<-chan Result, error) {
	fp := NewFingerprint(req.Text, req.Voice, req.Pitch, req.Rate, req.Language)
	if fp.Text == "" {
		return nil, ErrEmptyText
	}
	if fp.Voice == "" {
		return nil, ErrNoVoice
	}
	if o.online == nil || !o.online() {
		return nil, ErrOffline
	}

	ch := make(chan Result, 1)
	o.mu.Lock()
	if waiters, ok := o.inflight[fp]; ok {
		o.inflight[fp] = append(waiters, ch)
		o.mu.Unlock()
		o.log.Debug("joined in-flight request", "voice", fp.Voice)
		return ch, nil
	}
	o.inflight[fp] = []chan Result{ch}
	o.mu.Unlock()

	if err := o.queue.Submit(func() {
		o.finish(fp, o.speak(fp))
	}); err != nil {
		o.mu.Lock()
		delete(o.inflight, fp)
		o.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

// finish delivers the result to every waiter registered for fp. Waiter
// channels are buffered, so delivery never blocks the queue worker.
func (o *Orchestrator) finish(fp Fingerprint, res Result) {
	o.mu.Lock()
	waiters := o.inflight[fp]
	delete(o.inflight, fp)
	o.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
}

// speak runs the full pipeline for one request on the queue worker.
func (o *Orchestrator) speak(fp Fingerprint) Result {
	rec, err := o.store.FindUtterance(fp.Text, fp.Voice, fp.Pitch, fp.Rate, fp.Language)
	if err != nil {
		return Result{Err: &Error{Kind: KindArtifact, Message: "could not read the audio cache", Cause: err}}
	}

	if rec != nil {
		switch {
		case rec.AudioPath == nil:
			// A pending row with no artifact is debris from an earlier
			// crash mid-synthesis. Remove it and synthesize fresh.
			o.log.Debug("removing orphaned pending record", "id", rec.ID)
			o.deleteRecord(rec.ID)
		case !readable(*rec.AudioPath):
			// Self-healing eviction: a dangling artifact pointer
			// degrades to a cache miss, never to a hard failure.
			o.log.Info("evicting record with missing artifact", "id", rec.ID, "path", *rec.AudioPath)
			o.deleteRecord(rec.ID)
		default:
			o.log.Debug("cache hit", "id", rec.ID)
			return o.play(rec.ID, *rec.AudioPath, true)
		}
	}

	return o.synthesize(fp)
}

func (o *Orchestrator) synthesize(fp Fingerprint) Result {
	id, err := o.store.CreatePendingUtterance(fp.Text, fp.Voice, fp.Pitch, fp.Rate, fp.Language)
	if err != nil {
		return Result{Err: &Error{Kind: KindArtifact, Message: "could not record the request", Cause: err}}
	}
	path := filepath.Join(o.dir, fmt.Sprintf("%d.wav", id))

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	o.log.Debug("synthesizing", "id", id, "voice", fp.Voice, "language", fp.Language)
	audio, err := o.provider.Synthesize(ctx, synth.Request{
		Text:     fp.Text,
		Voice:    fp.Voice,
		Pitch:    fp.Pitch,
		Rate:     fp.Rate,
		Language: fp.Language,
	})
	if err != nil {
		o.deleteRecord(id)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Result{Err: &Error{Kind: KindConnectivity, Message: "the speech service did not answer in time", Cause: err}}
		}
		return Result{Err: &Error{Kind: KindProvider, Message: "speech synthesis failed", Cause: err}}
	}

	// Write-then-attach: the row only ever points at a complete file.
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		o.deleteRecord(id)
		return Result{Err: &Error{Kind: KindArtifact, Message: "could not create the audio directory", Cause: err}}
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		o.deleteRecord(id)
		return Result{Err: &Error{Kind: KindArtifact, Message: "could not save the audio", Cause: err}}
	}
	if err := o.store.AttachArtifact(id, path); err != nil {
		_ = os.Remove(path)
		o.deleteRecord(id)
		return Result{Err: &Error{Kind: KindArtifact, Message: "could not record the audio location", Cause: err}}
	}

	return o.play(id, path, false)
}

func (o *Orchestrator) play(id int64, path string, hit bool) Result {
	if o.gate != nil {
		o.gate.EnsureReady()
	}
	if err := o.player.Play(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The artifact vanished between lookup and playback.
			// Evict so the next identical request synthesizes fresh.
			o.deleteRecord(id)
			return Result{Err: &Error{Kind: KindArtifact, Message: "the cached audio has disappeared", Cause: err}}
		}
		// Transient engine trouble does not invalidate the artifact.
		return Result{
			AudioPath: path,
			CacheHit:  hit,
			Err:       &Error{Kind: KindPlayback, Message: "could not play audio, check your output device", Cause: err},
		}
	}
	return Result{AudioPath: path, CacheHit: hit}
}

func (o *Orchestrator) deleteRecord(id int64) {
	if err := o.store.DeleteUtterance(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		o.log.Warn("failed to delete cache record", "id", id, "error", err)
	}
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
