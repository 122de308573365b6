package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fjelby/sayboard/internal/speech"
	"github.com/fjelby/sayboard/internal/store"
)

var (
	voicesRefresh bool

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "Browse the provider's voice catalog",
	}

	voicesLsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List available voices",
		Long: "\nList the voices the synthesis service offers in the configured" +
			"\nregion. The catalog is cached locally for a week; --refresh forces" +
			"\na fresh fetch.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			catalog := speech.NewCatalog(queuedVoiceStore{a}, a.synthClient(), speech.DefaultVoiceTTL, a.log)
			voices, err := catalog.Voices(context.Background(), voicesRefresh)
			if err != nil {
				return err
			}

			for _, v := range voices {
				extra := ""
				if len(v.SupportedLanguages) > 0 {
					extra = " (+" + strings.Join(v.SupportedLanguages, ", ") + ")"
				}
				fmt.Printf("%s\t%s\t%s%s\tfetched %s\n",
					v.Name, v.Gender, v.PrimaryLanguage, extra, humanize.Time(v.FetchedAt))
			}
			return nil
		},
	}
)

// queuedVoiceStore routes catalog persistence through the persistence
// executor, keeping the single-writer discipline for the voices table.
type queuedVoiceStore struct{ a *app }

func (q queuedVoiceStore) FreshVoices(cutoff time.Time) ([]store.Voice, error) {
	var voices []store.Voice
	var qerr error
	if err := q.a.persist.SubmitWait(func() {
		voices, qerr = q.a.store.FreshVoices(cutoff)
	}); err != nil {
		return nil, err
	}
	return voices, qerr
}

func (q queuedVoiceStore) ReplaceVoices(voices []store.Voice) error {
	var qerr error
	if err := q.a.persist.SubmitWait(func() {
		qerr = q.a.store.ReplaceVoices(voices)
	}); err != nil {
		return err
	}
	return qerr
}

func init() {
	voicesLsCmd.Flags().BoolVar(&voicesRefresh, "refresh", false, "fetch the catalog even if the local copy is fresh")
	voicesCmd.AddCommand(voicesLsCmd)
}
