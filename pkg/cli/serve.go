package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/floorbot/pkg/server"
	"github.com/m-mizutani/floorbot/pkg/service/mcp"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := withFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Aliases:     []string{"a"},
				Usage:       "Listen address",
				Value:       "0.0.0.0:8000",
				Sources:     cli.EnvVars("FLOORBOT_ADDR"),
				Destination: &addr,
			},
		},
		globalFlags(&cfg),
		llmFlags(&cfg),
		indexFlags(&cfg),
		storeFlags(&cfg),
		retrievalFlags(&cfg),
		exportFlags(&cfg),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat API over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			defer cfg.close(ctx)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := cfg.newChatDeps(ctx)
			if err != nil {
				return err
			}
			uc, err := cfg.newChatUseCase(ctx, deps)
			if err != nil {
				return err
			}
			lexical, err := cfg.newLexical(ctx, deps.index)
			if err != nil {
				return err
			}
			logging.From(ctx).Info("index loaded", "index", cfg.indexKind, "fragments", lexical.Len())

			srv := server.New(uc, deps.index,
				server.WithCatalog(deps.catalog),
				server.WithLexical(lexical),
				server.WithStoreKind(cfg.storeKind),
				server.WithMCP(mcp.NewServer(uc, deps.catalog).Handler()),
			)
			return srv.Run(ctx, addr)
		},
	}
}
