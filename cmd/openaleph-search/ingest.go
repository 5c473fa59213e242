package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"openaleph.org/search/es"
	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/profile"
	"openaleph.org/search/transform"
)

// maxLineBytes bounds one NDJSON input line. Document entities carry
// extracted text, so lines run far past bufio's default.
const maxLineBytes = 64 * 1024 * 1024

func newFormatEntitiesCmd(a *app) *cobra.Command {
	var (
		dataset string
		input   string
	)

	cmd := &cobra.Command{
		Use:   "format-entities",
		Short: "Transform entities into bulk actions without indexing them",
		Long: `format-entities reads FollowTheMoney entities as JSON lines, derives
the indexable document for each (name features, numeric casts, routing)
and prints one bulk action per line.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			out := json.NewEncoder(os.Stdout)

			return eachEntity(input, dataset, func(entity *ftm.Entity) error {
				action, err := transform.Format(ftm.Default(), a.cfg, entity)
				if err != nil {
					return err
				}
				if action == nil {
					return nil
				}

				return out.Encode(action)
			})
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "dataset assigned to entities without one")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "entities file (JSON lines), - for stdin")

	return cmd
}

func newIndexEntitiesCmd(a *app) *cobra.Command {
	var (
		dataset string
		input   string
	)

	profCfg := profile.NewConfig()

	cmd := &cobra.Command{
		Use:   "index-entities",
		Short: "Transform entities and stream them into the cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof := profCfg.NewProfiler()
			if err := prof.Start(); err != nil {
				return err
			}
			defer func() {
				if err := prof.Stop(); err != nil {
					slog.Warn("stopping profiler", "error", err)
				}
			}()

			return runIndex(cmd, a, func(ix *index.Indexer) error {
				model := ftm.Default()

				return eachEntity(input, dataset, func(entity *ftm.Entity) error {
					action, err := transform.Format(model, a.cfg, entity)
					if err != nil || action == nil {
						return err
					}

					return ix.Index(cmd.Context(), action)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "dataset assigned to entities without one")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "entities file (JSON lines), - for stdin")
	profCfg.RegisterFlags(cmd.Flags())

	if err := profCfg.RegisterCompletions(cmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func newIndexActionsCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "index-actions",
		Short: "Replay pre-formatted bulk actions into the cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, a, func(ix *index.Indexer) error {
				return eachLine(input, func(line []byte) error {
					action := &index.Action{}
					if err := json.Unmarshal(line, action); err != nil {
						return fmt.Errorf("%w: %w", index.ErrInvalidAction, err)
					}

					return ix.Index(cmd.Context(), action)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "actions file (JSON lines), - for stdin")

	return cmd
}

// runIndex wraps an ingestion run: cluster client, bulk refresh mode for
// the duration, the indexer pipeline, and a stats line at the end.
func runIndex(cmd *cobra.Command, a *app, fn func(*index.Indexer) error) error {
	ctx := cmd.Context()

	client, err := es.New(a.cfg)
	if err != nil {
		return err
	}

	restore, err := index.BulkMode(ctx, client, a.cfg, "-1")
	if err != nil {
		return err
	}
	defer func() {
		if err := restore(ctx); err != nil {
			slog.Warn("restoring refresh interval", "error", err)
		}
	}()

	ix := index.NewIndexer(ctx, client, a.cfg)

	runErr := fn(ix)
	closeErr := ix.Close()

	indexed, dropped, failed := ix.Stats()
	slog.Info("ingestion finished",
		"indexed", indexed, "dropped", dropped, "failed", failed)

	if runErr != nil {
		return runErr
	}

	return closeErr
}

func eachEntity(input, dataset string, fn func(*ftm.Entity) error) error {
	return eachLine(input, func(line []byte) error {
		entity := &ftm.Entity{}
		if err := json.Unmarshal(line, entity); err != nil {
			return fmt.Errorf("decoding entity: %w", err)
		}
		if entity.Dataset == "" {
			entity.Dataset = dataset
		}

		return fn(entity)
	})
}

func eachLine(input string, fn func([]byte) error) error {
	var r io.Reader = os.Stdin

	if input != "" && input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		defer f.Close()

		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}
