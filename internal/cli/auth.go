package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var token, csrf string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the backend access token",
		Long: `Store the access token printed by the Remote Pull Runner backend on
first start. It is sent as X-Auth-Token with every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				var err error
				token, err = newTerminal().PromptSecret("Access token")
				if err != nil {
					return err
				}
			}
			if token == "" {
				return fmt.Errorf("login failed: empty token")
			}

			viper.Set("auth.token", token)
			if csrf != "" {
				viper.Set("auth.csrf_token", csrf)
			}

			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Fprintf(stdout, "Logged in to %s\n", apiClient.BaseURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&csrf, "csrf-token", "", "anti-forgery token, when the backend requires one")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("auth.token", "")
			viper.Set("auth.csrf_token", "")

			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			fmt.Fprintln(stdout, "Logged out successfully")
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the backend and stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]interface{}{
				"server":        apiClient.BaseURL(),
				"authenticated": viper.GetString("auth.token") != "",
				"csrf_token":    viper.GetString("auth.csrf_token") != "",
			}
			if structured() {
				return printOutput(info)
			}

			fmt.Fprintf(stdout, "Server:     %s\n", info["server"])
			fmt.Fprintf(stdout, "Token:      %s\n", maskToken(viper.GetString("auth.token")))
			return nil
		},
	}
}

// maskToken hides all but the last four characters of a token
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
