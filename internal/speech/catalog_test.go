package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjelby/sayboard/internal/store"
	"github.com/fjelby/sayboard/internal/synth"
)

type fakeVoiceStore struct {
	voices   []store.Voice
	readErr  error
	writeErr error
	replaced [][]store.Voice
}

func (f *fakeVoiceStore) FreshVoices(cutoff time.Time) ([]store.Voice, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var fresh []store.Voice
	for _, v := range f.voices {
		if !v.FetchedAt.Before(cutoff) {
			fresh = append(fresh, v)
		}
	}
	return fresh, nil
}

func (f *fakeVoiceStore) ReplaceVoices(voices []store.Voice) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.replaced = append(f.replaced, voices)
	f.voices = voices
	return nil
}

type fakeLister struct {
	calls int
	descs []synth.VoiceDescriptor
	err   error
}

func (f *fakeLister) Voices(ctx context.Context) ([]synth.VoiceDescriptor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.descs, nil
}

func TestCatalogServesFreshVoicesLocally(t *testing.T) {
	vs := &fakeVoiceStore{voices: []store.Voice{
		{Name: "da-DK-Jeppe", FetchedAt: time.Now().Add(-time.Hour)},
	}}
	lister := &fakeLister{}
	c := NewCatalog(vs, lister, DefaultVoiceTTL, nil)

	voices, err := c.Voices(context.Background(), false)
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "da-DK-Jeppe" {
		t.Errorf("unexpected voices: %+v", voices)
	}
	if lister.calls != 0 {
		t.Errorf("fresh catalog must not hit the provider, got %d calls", lister.calls)
	}
}

func TestCatalogRefreshesStaleVoices(t *testing.T) {
	vs := &fakeVoiceStore{voices: []store.Voice{
		{Name: "old", FetchedAt: time.Now().Add(-8 * 24 * time.Hour)},
	}}
	lister := &fakeLister{descs: []synth.VoiceDescriptor{
		{ShortName: "en-US-Ava", Gender: "Female", Locale: "en-US", SecondaryLocaleList: []string{"da-DK"}},
	}}
	c := NewCatalog(vs, lister, DefaultVoiceTTL, nil)

	voices, err := c.Voices(context.Background(), false)
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if lister.calls != 1 {
		t.Fatalf("stale catalog must refresh, got %d calls", lister.calls)
	}
	if len(voices) != 1 || voices[0].Name != "en-US-Ava" || voices[0].PrimaryLanguage != "en-US" {
		t.Errorf("unexpected voices: %+v", voices)
	}
	if len(voices[0].SupportedLanguages) != 1 || voices[0].SupportedLanguages[0] != "da-DK" {
		t.Errorf("secondary locales lost: %+v", voices[0])
	}
	if len(vs.replaced) != 1 {
		t.Errorf("refreshed voices must be persisted, got %d replacements", len(vs.replaced))
	}
}

func TestCatalogForcedRefreshSkipsLocalCopy(t *testing.T) {
	vs := &fakeVoiceStore{voices: []store.Voice{
		{Name: "fresh", FetchedAt: time.Now()},
	}}
	lister := &fakeLister{descs: []synth.VoiceDescriptor{{ShortName: "new"}}}
	c := NewCatalog(vs, lister, DefaultVoiceTTL, nil)

	voices, err := c.Voices(context.Background(), true)
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if lister.calls != 1 {
		t.Errorf("forced refresh must hit the provider, got %d calls", lister.calls)
	}
	if len(voices) != 1 || voices[0].Name != "new" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}

func TestCatalogProviderFailure(t *testing.T) {
	vs := &fakeVoiceStore{}
	lister := &fakeLister{err: errors.New("503")}
	c := NewCatalog(vs, lister, DefaultVoiceTTL, nil)

	_, err := c.Voices(context.Background(), false)
	if KindOf(err) != KindProvider {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestCatalogReturnsVoicesDespitePersistFailure(t *testing.T) {
	vs := &fakeVoiceStore{writeErr: errors.New("disk full")}
	lister := &fakeLister{descs: []synth.VoiceDescriptor{{ShortName: "v"}}}
	c := NewCatalog(vs, lister, DefaultVoiceTTL, nil)

	voices, err := c.Voices(context.Background(), false)
	if err != nil {
		t.Fatalf("fetch succeeded, persist failure must not surface: %v", err)
	}
	if len(voices) != 1 {
		t.Errorf("unexpected voices: %+v", voices)
	}
}
