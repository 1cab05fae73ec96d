package cli

import (
	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repo"},
		Short:   "Manage monitored repositories",
	}

	cmd.AddCommand(newReposListCmd())
	cmd.AddCommand(newReposAddCmd())
	cmd.AddCommand(newReposDeleteCmd())
	cmd.AddCommand(newReposCheckCmd())

	return cmd
}

func reposPage() *controller.ReposPage {
	return controller.NewReposPage(newEnv(newTerminal()), newCheckIndicator())
}

func newReposListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(reposPage().Load(cmd.Context()))
		},
	}
}

func newReposAddCmd() *cobra.Command {
	var req client.CreateRepoRequest

	cmd := &cobra.Command{
		Use:   "add <owner/repo | github url>",
		Short: "Enroll a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			return reported(reposPage().Add(cmd.Context(), req, nil))
		},
	}

	cmd.Flags().StringVar(&req.Branch, "branch", "main", "branch to watch")
	cmd.Flags().StringVar(&req.Token, "token", "", "GitHub token for private repositories")

	return cmd
}

func newReposDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(reposPage().Delete(cmd.Context(), args[0]))
		},
	}
}

func newReposCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Trigger a repository check sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(reposPage().Check(cmd.Context()))
		},
	}
}
