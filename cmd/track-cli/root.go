package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/BearBump/ParcelView/config"
	"github.com/BearBump/ParcelView/internal/integrations/carrier"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/upstream"
	"github.com/BearBump/ParcelView/internal/models"
	"github.com/BearBump/ParcelView/internal/services/tracker"
	"github.com/BearBump/ParcelView/internal/storage/pglookups"
)

// errPrinted — ошибка уже выведена в stdout как JSON, cobra не должна печатать её ещё раз.
var errPrinted = errors.New("track failed")

// журнал запросов в Postgres
type lookupLog interface {
	tracker.RecentStore
	ListLookups(ctx context.Context, trackingNumber string, limit int) ([]*models.Lookup, error)
}

type cliDeps struct {
	newUpstream  func(cfg *config.Config) carrier.Client
	newLookupLog func(cfg *config.Config) (lookupLog, func(), error)
}

func defaultCLIDeps() cliDeps {
	return cliDeps{
		newUpstream: func(cfg *config.Config) carrier.Client {
			return upstream.New(cfg.Upstream)
		},
		newLookupLog: func(cfg *config.Config) (lookupLog, func(), error) {
			connString := cfg.Database.ConnString()
			if connString == "" {
				return nil, nil, errors.New("database.host is required for the lookup log")
			}
			st, err := pglookups.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
	}
}

func newRootCmd(deps cliDeps) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "track-cli",
		Short:         "Look up DTDC shipments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (defaults to $configPath)")

	loadConfig := func() (*config.Config, error) {
		p := cfgPath
		if p == "" {
			p = os.Getenv("configPath")
		}
		if p == "" {
			// без конфига работаем на fake-перевозчике
			return &config.Config{}, nil
		}
		return config.LoadConfig(p)
	}

	root.AddCommand(
		newTrackCmd(deps, loadConfig),
		newRecentCmd(deps, loadConfig),
		newLookupsCmd(deps, loadConfig),
	)
	return root
}

func newTrackCmd(deps cliDeps, loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "track <tracking-number>",
		Short: "Fetch and print the normalized tracking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := tracker.New(deps.newUpstream(cfg), tracker.Deps{})

			info, err := svc.Track(cmd.Context(), "", args[0])
			if err != nil {
				_ = printJSON(cmd.OutOrStdout(), map[string]string{"error": tracker.UserMessage(err)})
				return errPrinted
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newRecentCmd(deps cliDeps, loadConfig func() (*config.Config, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print recently looked-up tracking numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeFn, err := deps.newLookupLog(cfg)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			svc := tracker.New(deps.newUpstream(cfg), tracker.Deps{Recent: store})
			out, err := svc.RecentSearches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string][]string{"trackingNumbers": out})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", tracker.DefaultRecentLimit, "how many tracking numbers to print")
	return cmd
}

type lookupView struct {
	ID             uint64          `json:"id"`
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`
	TrackedAt      time.Time       `json:"trackedAt"`
	Response       json.RawMessage `json:"response,omitempty"`
}

func newLookupsCmd(deps cliDeps, loadConfig func() (*config.Config, error)) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "lookups <tracking-number>",
		Short: "Print logged lookups of one tracking number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := tracker.New(nil, tracker.Deps{}).CleanTrackingNumber(args[0])
			if err != nil {
				return errors.New(tracker.UserMessage(err))
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeFn, err := deps.newLookupLog(cfg)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			rows, err := store.ListLookups(cmd.Context(), number, limit)
			if err != nil {
				return err
			}
			out := make([]lookupView, 0, len(rows))
			for _, l := range rows {
				v := lookupView{ID: l.ID, TrackingNumber: l.TrackingNumber, Status: l.Status, TrackedAt: l.TrackedAt}
				if json.Valid(l.ResponseJSON) {
					v.Response = l.ResponseJSON
				}
				out = append(out, v)
			}
			return printJSON(cmd.OutOrStdout(), map[string][]lookupView{"lookups": out})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "how many lookups to print")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func execute(ctx context.Context, deps cliDeps, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(deps)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errPrinted) {
			_, _ = io.WriteString(stderr, "Error: "+err.Error()+"\n")
		}
		return 1
	}
	return 0
}
