package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg      config
		query    string
		limit    int64
		semantic bool
	)

	flags := withFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "query",
				Aliases:     []string{"q"},
				Usage:       "Search terms",
				Destination: &query,
				Required:    true,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"l"},
				Usage:       "Maximum number of keyword hits",
				Value:       10,
				Destination: &limit,
			},
			&cli.BoolFlag{
				Name:        "semantic",
				Usage:       "Run the dual similarity search used by chat instead of keyword search",
				Destination: &semantic,
			},
		},
		globalFlags(&cfg),
		llmFlags(&cfg),
		indexFlags(&cfg),
		retrievalFlags(&cfg),
	)

	return &cli.Command{
		Name:  "search",
		Usage: "Search indexed fragments",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			defer cfg.close(ctx)

			idx, err := cfg.newIndex(ctx)
			if err != nil {
				return err
			}
			w := c.Root().Writer

			if semantic {
				gemini, err := cfg.newGemini(ctx)
				if err != nil {
					return err
				}
				result, err := cfg.newRetriever(idx, gemini).Retrieve(ctx, query)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Documents (%d):\n", len(result.Docs))
				printResults(w, result.Docs)
				fmt.Fprintf(w, "Images (%d):\n", len(result.Images))
				printResults(w, result.Images)
				return nil
			}

			lexical, err := cfg.newLexical(ctx, idx)
			if err != nil {
				return err
			}
			if lexical.Len() == 0 {
				return goerr.Wrap(model.ErrNotInitialized, "index is empty, run ingest first")
			}
			hits, err := lexical.Search(query, int(limit))
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Fprintf(w, "%.3f  %-24s page %-3d %s\n", h.Score, h.Fragment.ID, h.Fragment.Page(), excerpt(h.Fragment.Text))
			}
			if len(hits) == 0 {
				fmt.Fprintln(w, "No fragments matched")
			}
			return nil
		},
	}
}

func printResults(w io.Writer, results []*model.RetrievalResult) {
	for _, r := range results {
		fmt.Fprintf(w, "  %.3f  %-24s page %-3d %s\n", r.Similarity, r.Fragment.ID, r.Fragment.Page(), excerpt(r.Fragment.Text))
	}
}

func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:77]) + "..."
	}
	return text
}
