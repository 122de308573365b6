package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fjelby/sayboard/internal/store"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the audio cache",
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache record and artifact totals",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			var records []store.Utterance
			var qerr error
			if err := a.persist.SubmitWait(func() {
				records, qerr = a.store.ListUtterances(time.Time{})
			}); err != nil {
				return err
			}
			if qerr != nil {
				return qerr
			}

			var pending int
			var bytes uint64
			for _, r := range records {
				if r.AudioPath == nil {
					pending++
					continue
				}
				if info, err := os.Stat(*r.AudioPath); err == nil {
					bytes += uint64(info.Size())
				}
			}

			fmt.Printf("records:  %d\n", len(records))
			if pending > 0 {
				fmt.Printf("pending:  %d\n", pending)
			}
			fmt.Printf("on disk:  %s\n", humanize.Bytes(bytes))
			if len(records) > 0 {
				oldest := records[len(records)-1]
				fmt.Printf("oldest:   %s\n", humanize.Time(oldest.CreatedAt))
			}
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached record and artifact",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := openApp(log.Default())
			if err != nil {
				return err
			}
			defer a.close()

			// Collect artifact paths before the rows go away.
			var records []store.Utterance
			var n int64
			var qerr error
			if err := a.persist.SubmitWait(func() {
				records, qerr = a.store.ListUtterances(time.Time{})
				if qerr != nil {
					return
				}
				n, qerr = a.store.DeleteAllUtterances()
			}); err != nil {
				return err
			}
			if qerr != nil {
				return qerr
			}

			for _, r := range records {
				if r.AudioPath == nil {
					continue
				}
				if err := os.Remove(*r.AudioPath); err != nil && !os.IsNotExist(err) {
					a.log.Warn("could not remove artifact", "path", *r.AudioPath, "error", err)
				}
			}

			fmt.Printf("Removed %d cached records.\n", n)
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
