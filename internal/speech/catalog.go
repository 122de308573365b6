package speech

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fjelby/sayboard/internal/store"
	"github.com/fjelby/sayboard/internal/synth"
)

// DefaultVoiceTTL is how long a fetched voice catalog stays trustworthy.
const DefaultVoiceTTL = 7 * 24 * time.Hour

// VoiceStore persists the local voice catalog. *store.Store satisfies
// it.
type VoiceStore interface {
	FreshVoices(cutoff time.Time) ([]store.Voice, error)
	ReplaceVoices(voices []store.Voice) error
}

// VoiceLister fetches the provider's voice list. *synth.Client satisfies
// it.
type VoiceLister interface {
	Voices(ctx context.Context) ([]synth.VoiceDescriptor, error)
}

// Catalog serves voices from the local store while they are fresh and
// refreshes them from the provider when they are stale, absent, or a
// refresh is forced.
type Catalog struct {
	store  VoiceStore
	lister VoiceLister
	ttl    time.Duration
	log    *log.Logger
}

// NewCatalog builds a catalog. ttl <= 0 selects DefaultVoiceTTL.
func NewCatalog(vs VoiceStore, lister VoiceLister, ttl time.Duration, logger *log.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultVoiceTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{store: vs, lister: lister, ttl: ttl, log: logger.With("component", "voices")}
}

// Voices returns the catalog, hitting the provider only when the local
// copy is empty, older than the TTL, or force is set. A refresh that
// fetches successfully but cannot persist still returns the fetched
// voices; the store failure is logged.
func (c *Catalog) Voices(ctx context.Context, force bool) ([]store.Voice, error) {
	if !force {
		fresh, err := c.store.FreshVoices(time.Now().Add(-c.ttl))
		if err != nil {
			c.log.Warn("could not read local voice catalog", "error", err)
		}
		if len(fresh) > 0 {
			return fresh, nil
		}
	}

	c.log.Debug("refreshing voice catalog from provider")
	descs, err := c.lister.Voices(ctx)
	if err != nil {
		return nil, &Error{Kind: KindProvider, Message: "could not fetch the voice list", Cause: err}
	}

	voices := make([]store.Voice, 0, len(descs))
	for _, d := range descs {
		voices = append(voices, store.Voice{
			Name:               d.ShortName,
			Gender:             d.Gender,
			PrimaryLanguage:    d.Locale,
			SupportedLanguages: d.SecondaryLocaleList,
			FetchedAt:          time.Now(),
		})
	}

	if err := c.store.ReplaceVoices(voices); err != nil {
		c.log.Warn("could not persist voice catalog", "error", err)
	}
	return voices, nil
}
