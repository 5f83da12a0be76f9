package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/usecase/ingest"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg          config
		manifestPath string
		chunkSize    int64
		chunkOverlap int64
	)

	flags := withFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "manifest",
				Aliases:     []string{"m"},
				Usage:       "Path to the ingestion manifest (YAML)",
				Sources:     cli.EnvVars("FLOORBOT_MANIFEST"),
				Destination: &manifestPath,
				Required:    true,
			},
			&cli.IntFlag{
				Name:        "chunk-size",
				Usage:       "Maximum characters per document chunk",
				Value:       ingest.DefaultChunkSize,
				Sources:     cli.EnvVars("FLOORBOT_CHUNK_SIZE"),
				Destination: &chunkSize,
			},
			&cli.IntFlag{
				Name:        "chunk-overlap",
				Usage:       "Characters shared by consecutive chunks",
				Value:       ingest.DefaultChunkOverlap,
				Sources:     cli.EnvVars("FLOORBOT_CHUNK_OVERLAP"),
				Destination: &chunkOverlap,
			},
		},
		globalFlags(&cfg),
		llmFlags(&cfg),
		indexFlags(&cfg),
	)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Embed brochure pages and floorplan images into the index",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			defer cfg.close(ctx)

			if chunkOverlap >= chunkSize {
				return goerr.New("chunk-overlap must be smaller than chunk-size",
					goerr.V("chunk-size", chunkSize),
					goerr.V("chunk-overlap", chunkOverlap))
			}

			manifest, err := ingest.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			cat, err := cfg.newCatalog()
			if err != nil {
				return err
			}
			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			idx, err := cfg.newIndex(ctx)
			if err != nil {
				return err
			}

			uc := ingest.New(gemini, idx,
				ingest.WithCatalog(cat),
				ingest.WithChunkSize(int(chunkSize), int(chunkOverlap)),
			)
			report, err := uc.Run(ctx, manifest)
			if err != nil {
				return err
			}

			if cfg.indexKind == indexMemory {
				fragments, err := idx.Fragments(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to list fragments")
				}
				if err := index.SaveSnapshot(cfg.snapshotPath, fragments); err != nil {
					return err
				}
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "Ingested %d document chunks and %d images\n", report.Documents, report.Images)
			for _, path := range report.Skipped {
				fmt.Fprintf(w, "  skipped: %s\n", path)
			}
			return nil
		},
	}
}
