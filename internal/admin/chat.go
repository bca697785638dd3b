package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hesab/internal/assistant"
	"hesab/internal/cli"
)

// Chat commands understood by the REPL.
const (
	cmdStart = "/start"
	cmdReset = "/reset"
	cmdQuit  = "/quit"
)

// Assistant is the part of the engine the REPL drives.
type Assistant interface {
	Handle(ctx context.Context, msg assistant.Message) assistant.Result
	Welcome(ctx context.Context, msg assistant.Message) assistant.Result
	Forget(ctx context.Context, externalID string) error
}

func newChatCommand(e *env) *cobra.Command {
	var user, name string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := cli.OpenBackend(ctx, e.cfg, e.logger, true)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			chat, err := cli.NewChat(ctx, e.cfg, res, e.logger)
			if err != nil {
				return err
			}
			defer chat.Close()
			return REPL(ctx, chat.Engine, assistant.Message{ExternalID: user, DisplayName: name}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "external user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

// REPL reads one message per line from in and prints each reply to out until
// EOF or /quit. who carries the sender identity.
func REPL(ctx context.Context, a Assistant, who assistant.Message, in io.Reader, out io.Writer) error {
	if strings.TrimSpace(who.ExternalID) == "" {
		return errors.New("missing user id")
	}
	fmt.Fprintln(out, a.Welcome(ctx, who).Text())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case cmdQuit:
			return nil
		case cmdStart:
			fmt.Fprintln(out, a.Welcome(ctx, who).Text())
		case cmdReset:
			if err := a.Forget(ctx, who.ExternalID); err != nil {
				return err
			}
			fmt.Fprintln(out, "🧹 تاریخچه گفتگو پاک شد.")
		default:
			msg := who
			msg.Text = line
			fmt.Fprintln(out, a.Handle(ctx, msg).Text())
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
