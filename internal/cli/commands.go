package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

func newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commands",
		Aliases: []string{"command", "cmd"},
		Short:   "Manage scheduled commands",
	}

	cmd.AddCommand(newCommandsListCmd())
	cmd.AddCommand(newCommandsAddCmd())
	cmd.AddCommand(newCommandsDeleteCmd())
	cmd.AddCommand(newCommandsRunCmd())
	cmd.AddCommand(newCommandsOptionsCmd())
	cmd.AddCommand(newCommandsSecretsCmd())

	return cmd
}

func commandsPage() (*controller.CommandsPage, *terminal) {
	term := newTerminal()
	return controller.NewCommandsPage(newEnv(term)), term
}

func newCommandsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := commandsPage()
			return reported(page.Synchronizer().Load(cmd.Context()))
		},
	}
}

func newCommandsAddCmd() *cobra.Command {
	var req client.CreateCommandRequest

	cmd := &cobra.Command{
		Use:   "add -- <command...>",
		Short: "Enroll a command run on a server when a repository changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Command = strings.Join(args, " ")
			page, _ := commandsPage()
			return reported(page.Add(cmd.Context(), req, nil))
		},
	}

	cmd.Flags().StringVar(&req.Repo, "repo", "", "repository (owner/repo)")
	cmd.Flags().StringVar(&req.Server, "host", "", "server host")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

func newCommandsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := commandsPage()
			return reported(page.Delete(cmd.Context(), args[0]))
		},
	}
}

func newCommandsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Run a command now and show its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := commandsPage()
			result, err := page.Run(cmd.Context(), args[0])
			if err != nil {
				return reported(err)
			}
			if structured() {
				return printOutput(result)
			}

			t := NewTable("FIELD", "VALUE")
			t.AddRow("Status", result.Status)
			t.AddRow("Commit", result.Commit)
			t.AddRow("Last Run", result.LastRun)
			if result.Error != "" {
				t.AddRow("Error", result.Error)
			}
			t.Render()
			if result.Output != "" {
				fmt.Fprintln(stdout, result.Output)
			}
			return nil
		},
	}
}

func newCommandsOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the active repositories and servers a command can target",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := commandsPage()
			opts, err := page.Options(cmd.Context())
			if err != nil {
				return reported(err)
			}
			if structured() {
				return printOutput(opts)
			}
			return nil
		},
	}
}

func newCommandsSecretsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secrets <id>",
		Short: "List, add and delete the secrets of a command interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, term := commandsPage()
			return reported(page.Secrets(args[0], term).Run(cmd.Context()))
		},
	}
}
