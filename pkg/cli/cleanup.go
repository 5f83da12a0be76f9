package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

func cleanupCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete expired chat sessions",
		Flags: withFlags(globalFlags(&cfg), storeFlags(&cfg)),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setup(ctx)
			defer cfg.close(ctx)

			store, err := cfg.newSessionStore(ctx)
			if err != nil {
				return err
			}

			n, err := store.Cleanup(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Cleaned up %d expired sessions\n", n)
			return nil
		},
	}
}
