package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// countActive returns how many states are exactly true
func countActive(states []client.ActiveState) int {
	n := 0
	for _, s := range states {
		if s.IsActive() {
			n++
		}
	}
	return n
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend health and a summary of enrolled resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var repoStates, serverStates, commandStates []client.ActiveState
			repos, repoErr := apiClient.Repos().List(ctx)
			for _, r := range repos {
				repoStates = append(repoStates, r.Active)
			}
			servers, serverErr := apiClient.Servers().List(ctx)
			for _, s := range servers {
				serverStates = append(serverStates, s.Active)
			}
			commands, commandErr := apiClient.Commands().List(ctx)
			for _, c := range commands {
				commandStates = append(commandStates, c.Active)
			}

			if structured() {
				summary := map[string]interface{}{}
				if health, err := apiClient.Health(ctx); err == nil {
					summary["health"] = health.Status
				}
				if repoErr == nil {
					summary["repos"] = len(repos)
				}
				if serverErr == nil {
					summary["servers"] = len(servers)
				}
				if commandErr == nil {
					summary["commands"] = len(commands)
				}
				if sched, err := apiClient.Schedule(ctx); err == nil {
					summary["schedule"] = sched
				}
				return printOutput(summary)
			}

			fmt.Fprintln(stdout, "Remote Pull Runner")
			fmt.Fprintln(stdout, strings.Repeat("=", 40))
			fmt.Fprintf(stdout, "  Server:        %s\n", apiClient.BaseURL())

			health, err := apiClient.Health(ctx)
			if err != nil {
				fmt.Fprintf(stdout, "  Health:        (error: %v)\n", err)
			} else {
				fmt.Fprintf(stdout, "  Health:        %s\n", health.Status)
			}

			printCount := func(label string, states []client.ActiveState, err error) {
				if err != nil {
					fmt.Fprintf(stdout, "  %-14s (error: %v)\n", label+":", err)
					return
				}
				fmt.Fprintf(stdout, "  %-14s %d active (%d total)\n", label+":", countActive(states), len(states))
			}
			printCount("Repositories", repoStates, repoErr)
			printCount("Servers", serverStates, serverErr)
			printCount("Commands", commandStates, commandErr)

			if sched, err := apiClient.Schedule(ctx); err == nil {
				for _, line := range controller.ScheduleLines(*sched) {
					fmt.Fprintf(stdout, "  %s\n", line)
				}
			} else {
				log.WithError(err).Warn("failed to get schedule")
			}

			return nil
		},
	}
}
