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
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/chatdb/pkg/backup"
	"github.com/teradata-labs/chatdb/pkg/session"
)

func newBackupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export settings or a conversation to a JSON file",
	}
	cmd.AddCommand(newBackupSettingsCmd(c), newBackupConversationCmd(c), newBackupStoreCmd(c))
	return cmd
}

func newRestoreCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Import settings or a conversation from a JSON file",
	}
	cmd.AddCommand(newRestoreSettingsCmd(c), newRestoreConversationCmd(c))
	return cmd
}

func newBackupSettingsCmd(c *cli) *cobra.Command {
	var (
		output  string
		encrypt bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Export databases, API keys and vector stores",
		Long: heredoc.Doc(`
			Export the settings to a JSON file. Database URIs, API keys and vector
			store secrets are encrypted. Without --password they are encrypted with
			a built-in key, which only keeps them from being read at a glance;
			with --password you choose the key and must give it again on restore.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			password := ""
			if encrypt {
				if password, err = c.readNewPassword(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			rec, err := backup.BackupSettings(a.state.Settings(), password)
			if err != nil {
				return err
			}
			if err := writeRecord(output, rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", backup.SettingsFileName, "output file")
	cmd.Flags().BoolVarP(&encrypt, "password", "p", false, "prompt for a password to encrypt secrets with")
	return cmd
}

func newBackupConversationCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "conversation [title]",
		Short: "Export a conversation with its queries",
		Long:  "Export the named conversation, or the current one, including the SQL and rows behind every answer.",
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
			path := output
			if path == "" {
				path = backup.ConversationFileName(conv.ID)
			}
			if err := writeRecord(path, backup.BackupConversation(conv)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %q written to %s\n", conv.ID, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: chatdb_<title>.json)")
	return cmd
}

func newBackupStoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "store <file>",
		Short: "Copy the conversation store to a new SQLite file",
		Long: heredoc.Doc(`
			Write a consistent copy of the SQLite conversation store, with every
			conversation and the query log, to a new file and verify it. The file
			must not exist. Point --store at the copy to use it.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := a.state.SnapshotStore(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation store written to %s\n", path)
			return nil
		},
	}
}

func newRestoreSettingsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "settings <file>",
		Short: "Replace the settings with a backup",
		Long: heredoc.Doc(`
			Replace the current settings with a settings backup and reconnect every
			database. The password is asked for when the backup was made with one.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rec, err := backup.ReadSettingsRecord(f)
			if err != nil {
				return err
			}

			password := ""
			if rec.Encrypted() {
				if password, err = c.readSecret(cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}
			st, err := backup.RestoreSettings(rec, password)
			if errors.Is(err, backup.ErrDecryption) {
				return fmt.Errorf("%w: wrong password or corrupted backup", err)
			}
			if err != nil {
				return err
			}
			if err := a.state.ApplySettings(cmd.Context(), st); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
			}
			if err := a.saveSettings(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d databases and %d vector stores\n", len(st.Databases), len(st.VectorStores))
			return nil
		},
	}
}

func newRestoreConversationCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "conversation <file>",
		Short: "Import a conversation backup",
		Long:  "Import a conversation backup, replacing a conversation with the same title, and make it current.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rec, err := backup.ReadConversationRecord(f)
			if err != nil {
				return err
			}
			conv, err := backup.RestoreConversation(rec)
			if err != nil {
				return err
			}
			if err := a.state.ImportConversation(cmd.Context(), conv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored conversation %q\n", conv.ID)
			if a.state.Validate(conv.ID) != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), session.InvalidConversationMessage)
			}
			return nil
		},
	}
}

// writeRecord writes v as indented JSON to path, readable by the owner only.
func writeRecord(path string, v interface{}) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := backup.WriteJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
