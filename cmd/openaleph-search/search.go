package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"openaleph.org/search/es"
	"openaleph.org/search/ftm"
	"openaleph.org/search/index"
	"openaleph.org/search/parse"
	"openaleph.org/search/query"
)

// parserFromArgs builds the typed parameter view from an --args query
// string. The CLI runs unauthenticated; auth scoping is a server
// concern.
func (a *app) parserFromArgs(rawArgs string) (*parse.Parser, error) {
	args, err := parse.ParseQuery(rawArgs)
	if err != nil {
		return nil, err
	}

	return parse.NewParser(a.cfg, args, nil)
}

func newQueryStringCmd(a *app) *cobra.Command {
	var (
		rawArgs string
		execute bool
	)

	cmd := &cobra.Command{
		Use:   "query-string <text>",
		Short: "Build (or run) an entity search from query text",
		Long: `query-string builds the full entity search request body for the given
query text plus any --args parameters and prints it. With --execute the
request is sent to the cluster and the raw response is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := a.parserFromArgs(rawArgs)
			if err != nil {
				return err
			}

			parser.Text = args[0]

			q, err := query.NewEntitiesQuery(a.cfg, ftm.Default(), parser)
			if err != nil {
				return err
			}

			if !execute {
				return printJSON(query.Body(q))
			}

			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			result, err := query.Search(cmd.Context(), client, a.cfg, q)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "additional parameters as a URL query string")
	cmd.Flags().BoolVar(&execute, "execute", false, "send the request to the cluster")

	return cmd
}

func newBodyCmd(a *app) *cobra.Command {
	var (
		input   string
		rawArgs string
	)

	cmd := &cobra.Command{
		Use:   "body",
		Short: "Run a raw search body against the entity indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readInput(input)
			if err != nil {
				return err
			}

			parser, err := a.parserFromArgs(rawArgs)
			if err != nil {
				return err
			}

			// Index selection follows the entity query's schema routing.
			q, err := query.NewEntitiesQuery(a.cfg, ftm.Default(), parser)
			if err != nil {
				return err
			}

			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			res, err := client.Search(
				client.Search.WithContext(cmd.Context()),
				client.Search.WithIndex(q.Indexes()...),
				client.Search.WithBody(bytes.NewReader(body)),
			)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			result, err := es.DecodeResponse(res)
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "search body file, - for stdin")
	cmd.Flags().StringVar(&rawArgs, "args", "", "index selection parameters as a URL query string")

	return cmd
}

func newDumpActionsCmd(a *app) *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "dump-actions",
		Short: "Export matching documents as replayable bulk actions",
		Long: `dump-actions scrolls every document matching the --args query out of
the cluster and prints one bulk action per line. The output feeds back
into index-actions unchanged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parser, err := a.parserFromArgs(rawArgs)
			if err != nil {
				return err
			}

			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			out := json.NewEncoder(os.Stdout)

			return query.Export(cmd.Context(), client, a.cfg, ftm.Default(), parser,
				func(action *index.Action) error {
					return out.Encode(action)
				})
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "selection parameters as a URL query string")

	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		field  string
		schema string
		input  string
	)

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Run text through a field's index-time analyzer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)

			if len(args) > 0 {
				text = []byte(args[0])
			} else if text, err = readInput(input); err != nil {
				return err
			}

			client, err := es.New(a.cfg)
			if err != nil {
				return err
			}

			tokens, err := query.Analyze(cmd.Context(), client, a.cfg,
				ftm.Default(), schema, field, string(text))
			if err != nil {
				return err
			}

			for _, token := range tokens {
				fmt.Println(token)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", "content", "field whose analyzer to use")
	cmd.Flags().StringVar(&schema, "schema", "", "schema selecting the target index")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "text file, - for stdin")

	return cmd
}

func printJSON(doc any) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	out = append(out, '\n')

	_, err = os.Stdout.Write(out)

	return err
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return data, nil
}
