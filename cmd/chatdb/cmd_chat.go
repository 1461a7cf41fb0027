// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/session"
	"github.com/teradata-labs/chatdb/pkg/types"
)

const replHelp = `Commands:
  /retry            retry the last failed prompt with streaming
  /retry-nostream   retry the last failed prompt without streaming
  /databases        list the databases of this conversation
  /queries          show the SQL behind the last answer
  /help             show this help
  /exit             leave the chat`

func newChatCmd(c *cli) *cobra.Command {
	var (
		message  string
		noStream bool
	)
	cmd := &cobra.Command{
		Use:   "chat [title]",
		Short: "Chat in a conversation",
		Long: heredoc.Doc(`
			Chat in the named conversation, or in the current one. With --message a
			single prompt is answered and the command exits; otherwise prompts are
			read line by line until /exit or end of input.

			When an answer fails for a reason the agent cannot fix by itself, the
			error is shown and the prompt can be sent again with /retry.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			conv, err := lookupConversation(a, args)
			if err != nil {
				return err
			}
			if err := a.state.Select(conv.ID); err != nil {
				return err
			}
			if err := a.state.Validate(conv.ID); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), session.InvalidConversationMessage)
				return err
			}

			r := &repl{
				state:  a.state,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
				stream: c.config.Chat.Stream && !noStream,
			}
			if message != "" {
				return r.prompt(cmd.Context(), message)
			}
			return r.run(cmd.Context(), c.stdin)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "answer one prompt and exit")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for complete answers instead of streaming")
	return cmd
}

// repl drives one conversation from line-oriented input.
type repl struct {
	state  *session.State
	out    io.Writer
	errOut io.Writer
	stream bool
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	conv, err := r.state.Current()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Conversation %q on %s. Type /help for commands.\n\n", conv.ID, strings.Join(conv.DatabaseIDs, ", "))
	if last, ok := conv.LastMessage(); ok {
		printMessage(r.out, last, false)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch line {
		case "/exit", "/quit":
			return nil
		case "/help":
			fmt.Fprintln(r.out, replHelp)
		case "/retry":
			err = r.retry(ctx, true)
		case "/retry-nostream":
			err = r.retry(ctx, false)
		case "/databases":
			err = r.databases()
		case "/queries":
			err = r.queries()
		default:
			if strings.HasPrefix(line, "/") {
				fmt.Fprintf(r.errOut, "Unknown command %s\n%s\n", line, replHelp)
				continue
			}
			err = r.prompt(ctx, line)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(r.errOut, "Error:", err)
		}
	}
}

func (r *repl) prompt(ctx context.Context, text string) error {
	res, err := r.state.Send(ctx, text, r.turnOptions(r.stream))
	if err != nil {
		return err
	}
	r.report(res, r.stream)
	return nil
}

func (r *repl) retry(ctx context.Context, stream bool) error {
	res, err := r.state.Retry(ctx, stream, r.turnOptions(stream))
	if errors.Is(err, session.ErrNoRetry) {
		return errors.New("the last prompt did not fail; nothing to retry")
	}
	if err != nil {
		return err
	}
	r.report(res, stream)
	return nil
}

func (r *repl) turnOptions(stream bool) session.TurnOptions {
	opts := session.TurnOptions{
		Stream: stream,
		OnAttempt: func(n int) {
			if n > 1 {
				fmt.Fprintf(r.errOut, "\n[retrying after a query error, attempt %d]\n", n)
			}
		},
	}
	if stream {
		opts.OnChunk = func(chunk string) { fmt.Fprint(r.out, chunk) }
	}
	return opts
}

// report prints what the callbacks did not: the whole answer in blocking
// mode and the error text of a fatal turn.
func (r *repl) report(res *conversation.TurnResult, streamed bool) {
	switch {
	case res.Outcome == conversation.OutcomeFatal:
		if streamed {
			fmt.Fprintln(r.out)
		}
		fmt.Fprintln(r.out, res.Message.Content)
		fmt.Fprintln(r.errOut, "Type /retry or /retry-nostream to send the prompt again.")
	case streamed:
		fmt.Fprintln(r.out)
	default:
		fmt.Fprintln(r.out, res.Message.Content)
	}
	if n := len(res.Message.Queries); n > 0 {
		fmt.Fprintf(r.errOut, "(%d queries, /queries to show)\n", n)
	}
	fmt.Fprintln(r.out)
}

func (r *repl) databases() error {
	conv, err := r.state.Current()
	if err != nil {
		return err
	}
	for _, id := range conv.DatabaseIDs {
		status := ""
		if !r.state.Registry().Has(id) {
			status = " (missing)"
		}
		fmt.Fprintf(r.out, "%s%s\n", id, status)
	}
	return nil
}

func (r *repl) queries() error {
	conv, err := r.state.Current()
	if err != nil {
		return err
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Role != types.RoleAssistant {
			continue
		}
		if len(msg.Queries) == 0 {
			fmt.Fprintln(r.out, "The last answer ran no queries.")
			return nil
		}
		printQueries(r.out, msg.Queries)
		return nil
	}
	fmt.Fprintln(r.out, "No answers yet.")
	return nil
}
