package cli

import (
	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

func newServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "servers",
		Aliases: []string{"server"},
		Short:   "Manage SSH target servers",
	}

	cmd.AddCommand(newServersListCmd())
	cmd.AddCommand(newServersAddCmd())
	cmd.AddCommand(newServersDeleteCmd())
	cmd.AddCommand(newServersCheckCmd())

	return cmd
}

func serversPage() *controller.ServersPage {
	return controller.NewServersPage(newEnv(newTerminal()), newCheckIndicator())
}

func newServersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(serversPage().Load(cmd.Context()))
		},
	}
}

func newServersAddCmd() *cobra.Command {
	var req client.CreateServerRequest

	cmd := &cobra.Command{
		Use:   "add <host>",
		Short: "Enroll a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Host = args[0]
			if req.Key == "" {
				key, err := newTerminal().PromptSecret("SSH private key or password")
				if err != nil {
					return err
				}
				req.Key = key
			}
			return reported(serversPage().Add(cmd.Context(), req, nil))
		},
	}

	cmd.Flags().StringVar(&req.User, "user", "root", "SSH user")
	cmd.Flags().StringVar(&req.Key, "key", "", "SSH private key or password (prompted when empty)")

	return cmd
}

func newServersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <host>",
		Short: "Remove a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(serversPage().Delete(cmd.Context(), args[0]))
		},
	}
}

func newServersCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Trigger a server connectivity sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reported(serversPage().Check(cmd.Context()))
		},
	}
}
