package cli

import (
	"context"

	"github.com/m-mizutani/floorbot/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the advisor as MCP tools over stdio",
		Flags: withFlags(
			globalFlags(&cfg),
			llmFlags(&cfg),
			indexFlags(&cfg),
			storeFlags(&cfg),
			retrievalFlags(&cfg),
			exportFlags(&cfg),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			defer cfg.close(ctx)

			deps, err := cfg.newChatDeps(ctx)
			if err != nil {
				return err
			}
			uc, err := cfg.newChatUseCase(ctx, deps)
			if err != nil {
				return err
			}

			return mcp.NewServer(uc, deps.catalog).Run(ctx)
		},
	}
}
