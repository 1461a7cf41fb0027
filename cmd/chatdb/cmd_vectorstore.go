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
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/chatdb/pkg/settings"
)

func newVectorStoreCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vectorstore",
		Aliases: []string{"vs", "vectorstores"},
		Short:   "Manage the configured vector stores",
	}
	cmd.AddCommand(
		newVectorStoreAddCmd(c),
		newVectorStoreListCmd(c),
		newVectorStoreRemoveCmd(c),
	)
	return cmd
}

func newVectorStoreAddCmd(c *cli) *cobra.Command {
	var (
		kind       string
		renameFrom string
		pinecone   settings.PineconeProps
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add or reconfigure a vector store",
		Long: heredoc.Doc(`
			Add a vector store under an id, or reconfigure an existing one. The type
			of an existing store cannot change. Pinecone stores need an index name.
		`),
		Example: heredoc.Doc(`
			chatdb vectorstore add local --type in-memory
			chatdb vectorstore add cloud --type pinecone --api-key pc-... --environment us-east1-gcp --index-name tables
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := settings.ParseVectorStoreKind(strings.ToLower(kind))
			if err != nil {
				return err
			}
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			v := settings.InMemoryVectorStore(args[0])
			if k == settings.VectorStorePinecone {
				v = settings.PineconeVectorStore(args[0], pinecone)
			}
			if err := a.state.SaveVectorStore(renameFrom, v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved vector store %s\n", v.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "in-memory", "store type: in-memory or pinecone")
	cmd.Flags().StringVar(&renameFrom, "rename-from", "", "existing vector store id to rename")
	cmd.Flags().StringVar(&pinecone.APIKey, "api-key", "", "Pinecone API key")
	cmd.Flags().StringVar(&pinecone.Environment, "environment", "", "Pinecone environment")
	cmd.Flags().StringVar(&pinecone.IndexName, "index-name", "", "Pinecone index name")
	return cmd
}

func newVectorStoreListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured vector stores",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROPERTIES")
			for _, v := range a.state.Settings().VectorStores {
				var props []string
				for _, p := range v.Props() {
					value := p.Value
					if p.Name == "API key" {
						value = maskSecret(value)
					}
					props = append(props, p.Name+"="+value)
				}
				fmt.Fprintf(w, "%s\t%s\n", v.ID, strings.Join(props, " "))
			}
			return w.Flush()
		},
	}
}

func newVectorStoreRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a vector store",
		Long: heredoc.Doc(`
			Remove a vector store from the settings. Conversations linked to it
			cannot continue until it is added again or unlinked.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.state.RemoveVectorStore(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed vector store %s\n", args[0])
			return nil
		},
	}
}
