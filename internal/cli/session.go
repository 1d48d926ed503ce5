package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print the current session id, creating one if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFromContext(cmd.Context())
			if fresh {
				app.Boot.Forget()
			}
			id, err := app.Boot.SessionID(cmd.Context())
			if err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "discard the cached session and create a new one")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the current session stands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFromContext(cmd.Context())
			return app.Boot.Do(cmd.Context(), func(ctx context.Context, id string) error {
				s, err := app.API.Summary(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "session:    %s\n", s.ID)
				fmt.Fprintf(out, "status:     %s\n", s.Status)
				fmt.Fprintf(out, "resume:     %s\n", yesNo(s.HasCV))
				fmt.Fprintf(out, "analysis:   %s\n", yesNo(s.HasAnalysis))
				fmt.Fprintf(out, "questions:  %d/%d answered\n", s.QuestionsAnswered, s.TotalQuestions)
				fmt.Fprintf(out, "generated:  %s\n", yesNo(s.HasGeneratedCV))
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the current session and everything stored for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFromContext(cmd.Context())
			id, err := app.Boot.SessionID(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.API.DeleteSession(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			app.Boot.Forget()
			fmt.Fprintf(cmd.OutOrStdout(), "deleted session %s\n", id)
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
