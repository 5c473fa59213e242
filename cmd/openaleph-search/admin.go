package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"openaleph.org/search/es"
	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/mapping"
	"openaleph.org/search/settings"
	"openaleph.org/search/version"
)

func newUpgradeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Create or update the entity indexes for the write version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			if err := es.Ping(cmd.Context(), client, a.cfg); err != nil {
				return err
			}

			return index.Configure(cmd.Context(), client, ftm.Default(), a.cfg)
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entity index and recreate the write version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("reset deletes all indexed data; pass --force to proceed")
			}

			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			slog.Warn("deleting all entity indexes", "pattern", index.Pattern(a.cfg))

			if err := index.Delete(cmd.Context(), client, a.cfg); err != nil {
				return err
			}

			return index.Configure(cmd.Context(), client, ftm.Default(), a.cfg)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deleting all indexed data")

	return cmd
}

func newMappingCmd(a *app) *cobra.Command {
	var (
		bucket string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "mapping --bucket <bucket>",
		Short: "Print the generated index mapping and settings for a bucket",
		RunE: func(_ *cobra.Command, _ []string) error {
			b := mapping.Bucket(bucket)
			if !validBucket(b) {
				return fmt.Errorf("unknown bucket %q, one of: %v", bucket, mapping.Buckets)
			}

			doc := map[string]any{
				"mappings": mapping.ForBucket(ftm.Default(), b, a.cfg),
				"settings": mapping.Settings(b, a.cfg),
			}

			if asYAML {
				return printYAML(doc)
			}

			return printJSON(doc)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", string(mapping.BucketThings), "index bucket")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "emit YAML instead of JSON")

	if err := cmd.RegisterFlagCompletionFunc("bucket",
		cobra.FixedCompletions(bucketNames(), cobra.ShellCompDirectiveNoFileComp)); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			RunE: func(_ *cobra.Command, _ []string) error {
				return printYAML(a.cfg)
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema of the configuration document",
			RunE: func(_ *cobra.Command, _ []string) error {
				return printJSON(settings.Schema())
			},
		},
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.Long())
		},
	}
}

func validBucket(b mapping.Bucket) bool {
	for _, known := range mapping.Buckets {
		if b == known {
			return true
		}
	}

	return false
}

func bucketNames() []string {
	names := make([]string, 0, len(mapping.Buckets))
	for _, b := range mapping.Buckets {
		names = append(names, string(b))
	}

	return names
}

func printYAML(doc any) error {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	_, err = os.Stdout.Write(out)

	return err
}
