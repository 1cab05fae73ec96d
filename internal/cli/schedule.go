package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Show when the next check sweeps run",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := apiClient.Schedule(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get schedule: %w", err)
			}
			if structured() {
				return printOutput(sched)
			}
			for _, line := range controller.ScheduleLines(*sched) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
}

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the activity and connectivity logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := controller.NewLogsPage(newEnv(newTerminal()))
			return reported(page.Load(cmd.Context()))
		},
	}
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the check sweep intervals",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current intervals",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := controller.NewSettingsPage(newEnv(newTerminal()))
			return reported(page.Load(cmd.Context()))
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var settings client.Settings

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the intervals, in hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			page := controller.NewSettingsPage(newEnv(newTerminal()))
			return reported(page.Update(cmd.Context(), settings))
		},
	}

	cmd.Flags().IntVar(&settings.RepoInterval, "repo-interval", 24, "hours between repository checks")
	cmd.Flags().IntVar(&settings.ServerInterval, "server-interval", 12, "hours between server checks")

	return cmd
}
