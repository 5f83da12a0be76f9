package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg         config
		sessionID   string
		showSignals bool
	)

	flags := withFlags(
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "session-id",
				Aliases:     []string{"s"},
				Usage:       "Resume a session (a new one is started when empty)",
				Sources:     cli.EnvVars("FLOORBOT_SESSION_ID"),
				Destination: &sessionID,
			},
			&cli.BoolFlag{
				Name:        "show-signals",
				Usage:       "Print lead signals after each answer",
				Destination: &showSignals,
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
		Name:  "chat",
		Usage: "Talk to the advisor interactively",
		Flags: flags,
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

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := rl.Stdout()
			fmt.Fprintf(w, "%s advisor (session %s). Type 'exit' to quit.\n", deps.catalog.Project, sessionID)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" || message == "quit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
				sp.Suffix = " thinking..."
				sp.Start()
				resp, err := uc.Chat(ctx, &chat.ChatInput{
					SessionID: model.SessionID(sessionID),
					Message:   message,
				})
				sp.Stop()

				if err != nil {
					// Failed turns leave the session unchanged, so the user can retry
					fmt.Fprintf(w, "error: %v\n", err)
					continue
				}
				printResponse(w, resp, showSignals)
			}

			fmt.Fprintf(w, "\nSession %s closed\n", sessionID)
			return nil
		},
	}
}

func printResponse(w io.Writer, resp *model.ChatResponse, showSignals bool) {
	fmt.Fprintf(w, "\n%s\n", resp.Response)

	if len(resp.Citations) > 0 {
		refs := make([]string, 0, len(resp.Citations))
		for _, c := range resp.Citations {
			ref := fmt.Sprintf("p.%d", c.Page)
			if c.VillaType != "" {
				ref += " " + c.VillaType
			}
			refs = append(refs, ref)
		}
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(refs, ", "))
	}

	for _, img := range resp.Images {
		fmt.Fprintf(w, "  [image] %s (%s)\n", img.Path, img.Description)
	}

	if showSignals {
		ls := resp.LeadSignals
		fmt.Fprintf(w, "\n  intent=%s score=%.2f action=%s signals=%v\n", ls.Intent, ls.IntentScore, ls.RecommendedAction, ls.SignalsDetected)
		if ls.ContactRequest != "" {
			fmt.Fprintf(w, "  contact_request=%s\n", ls.ContactRequest)
		}
	}

	if resp.FollowUpPrompt != "" {
		fmt.Fprintf(w, "\n%s\n", resp.FollowUpPrompt)
	}
	fmt.Fprintln(w)
}
