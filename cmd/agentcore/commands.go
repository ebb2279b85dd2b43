package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentcore/agentcore/internal/sessions"
	"github.com/agentcore/agentcore/pkg/models"
)

func buildSessionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted sessions and their message history",
	}

	listCmd := &cobra.Command{
		Use:   "list <agent-id>",
		Short: "List sessions for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := buildSessionStore(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			sessionList, err := store.List(cmd.Context(), args[0], sessions.ListOptions{})
			if err != nil {
				return err
			}
			for _, s := range sessionList {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.ID, s.Channel, s.ChannelID, s.UpdatedAt.Format("2006-01-02T15:04:05"))
			}
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print a session's message history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := buildSessionStore(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			history, err := store.GetHistory(cmd.Context(), args[0], 200)
			if err != nil {
				return err
			}
			for _, m := range history {
				printMessage(cmd, m)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (defaults to in-memory, which will be empty)")
	cmd.AddCommand(listCmd, historyCmd)
	return cmd
}

func printMessage(cmd *cobra.Command, m *models.Message) {
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Role, m.Content)
}
