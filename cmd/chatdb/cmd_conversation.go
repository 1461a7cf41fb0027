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
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/database"
	"github.com/teradata-labs/chatdb/pkg/settings"
)

func newConversationCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv", "conversations"},
		Short:   "Manage conversations",
	}
	cmd.AddCommand(
		newConversationNewCmd(c),
		newConversationListCmd(c),
		newConversationShowCmd(c),
		newConversationSelectCmd(c),
		newConversationDeleteCmd(c),
	)
	return cmd
}

func newConversationNewCmd(c *cli) *cobra.Command {
	var (
		model       string
		databases   []string
		vectorStore string
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Start a conversation over some databases",
		Long: heredoc.Doc(`
			Start a conversation and make it the current one. The title must be
			unique. The conversation can only query the databases given with --db.
		`),
		Example: heredoc.Doc(`
			chatdb conversation new "Quarterly revenue" --db sales --db finance
			chatdb conversation new "HR questions" --db hr --model claude-sonnet-4-5
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			if model == "" {
				model = c.config.LLM.Model
			}
			if vectorStore != "" {
				if _, ok := a.state.Settings().VectorStore(vectorStore); !ok {
					return fmt.Errorf("%w: vector store '%s'", settings.ErrNotFound, vectorStore)
				}
			}
			conv, err := a.state.NewConversation(cmd.Context(), args[0], model, databases)
			if err != nil {
				return err
			}
			if vectorStore != "" {
				if err := a.state.SetVectorStore(cmd.Context(), conv.ID, vectorStore); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created conversation %q (%s)\n", conv.ID, conv.Model)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model for this conversation (default: llm.model)")
	cmd.Flags().StringSliceVarP(&databases, "db", "d", nil, "database id the conversation may query (repeatable)")
	cmd.Flags().StringVar(&vectorStore, "vector-store", "", "vector store id to link to the conversation")
	return cmd
}

func newConversationListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			current, _ := a.state.Current()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tTITLE\tMODEL\tDATABASES\tMESSAGES\tUPDATED")
			for _, conv := range a.state.Conversations() {
				marker := ""
				if current != nil && current.ID == conv.ID {
					marker = "*"
				}
				dbs := strings.Join(conv.DatabaseIDs, ",")
				if a.state.Validate(conv.ID) != nil {
					dbs += " (missing)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					marker, conv.ID, conv.Model, dbs, len(conv.Messages), conv.LastUpdate.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func newConversationShowCmd(c *cli) *cobra.Command {
	var queries bool
	cmd := &cobra.Command{
		Use:   "show [title]",
		Short: "Print a conversation",
		Long:  "Print the messages of a conversation, the current one when no title is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			conv, err := lookupConversation(a, args)
			if err != nil {
				return err
			}
			printConversation(cmd.OutOrStdout(), conv, queries)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&queries, "queries", "q", false, "include the SQL queries behind each answer")
	return cmd
}

func newConversationSelectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "select <title>",
		Short: "Make a conversation the current one",
		Args:  cobra.ExactArgs(1),
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
			fmt.Fprintf(cmd.OutOrStdout(), "Selected conversation %q\n", conv.ID)
			return nil
		},
	}
}

func newConversationDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <title>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			conv, err := lookupConversation(a, args)
			if err != nil {
				return err
			}
			if err := a.state.DeleteConversation(cmd.Context(), conv.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %q\n", conv.ID)
			return nil
		},
	}
}

// lookupConversation resolves the title in args, or the current
// conversation. Unknown titles get close matches as suggestions.
func lookupConversation(a *app, args []string) (*conversation.Conversation, error) {
	if len(args) == 0 || args[0] == "" {
		return a.state.Current()
	}
	conv, err := a.state.Conversation(args[0])
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, conversation.ErrConversationNotFound) {
		return nil, err
	}
	var titles []string
	for _, c := range a.state.Conversations() {
		titles = append(titles, c.ID)
	}
	matches := fuzzy.Find(args[0], titles)
	if len(matches) == 0 {
		return nil, err
	}
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, fmt.Sprintf("%q", m.Str))
	}
	return nil, fmt.Errorf("%w (did you mean %s?)", err, strings.Join(suggestions, ", "))
}

func printConversation(w io.Writer, conv *conversation.Conversation, withQueries bool) {
	fmt.Fprintf(w, "# %s\n", conv.ID)
	fmt.Fprintf(w, "model: %s, databases: %s", conv.Model, strings.Join(conv.DatabaseIDs, ", "))
	if conv.VectorStoreID != "" {
		fmt.Fprintf(w, ", vector store: %s", conv.VectorStoreID)
	}
	fmt.Fprint(w, "\n\n")
	for _, msg := range conv.Messages {
		printMessage(w, msg, withQueries)
	}
}

func printMessage(w io.Writer, msg conversation.Message, withQueries bool) {
	fmt.Fprintf(w, "[%s]\n%s\n", msg.Role, msg.Content)
	if withQueries {
		printQueries(w, msg.Queries)
	}
	fmt.Fprintln(w)
}

func printQueries(w io.Writer, queries []conversation.QueryRecord) {
	for i, q := range queries {
		fmt.Fprintf(w, "  query %d on %s:\n    %s\n", i+1, q.Database, q.Query)
		for _, row := range q.Rows {
			fmt.Fprintf(w, "    | %s\n", database.RowDocument(row).Text)
		}
		if q.Truncated {
			fmt.Fprintf(w, "    | %s\n", database.TruncationNotice(len(q.Rows)).Text)
		}
	}
}
