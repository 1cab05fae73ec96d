package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/validator"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

const defaultServerURL = "http://localhost:5000"

var (
	cfgFile      string
	outputFormat string
	serverURL    string
	logLevel     string
	apiClient    *client.Client
	log          = logger.Nop()

	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// reportedError is an error already shown to the user as a notification
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// reported marks err as already surfaced
func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// Reported reports whether err was already shown to the user
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pullrunner",
		Short: "Remote Pull Runner CLI - manage repositories, servers and scheduled commands",
		Long: `The pullrunner CLI drives a Remote Pull Runner backend: it lists and
enrolls repositories, servers and commands, triggers check sweeps, runs
commands, and manages per-command secrets.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cmd); err != nil {
				return err
			}
			initLogger()

			// Skip client init for config commands
			if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "login" || cmd.Name() == "status" {
				return initClient()
			}
			return initAuthenticatedClient()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.pullrunner/config.yaml)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml, html")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newReposCmd())
	cmd.AddCommand(newServersCmd())
	cmd.AddCommand(newCommandsCmd())
	cmd.AddCommand(newScheduleCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newWatchCmd())

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

// Execute runs the CLI
func Execute() error {
	return newRootCmd().Execute()
}

// execute runs the CLI with explicit arguments
func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func initConfig(cmd *cobra.Command) error {
	viper.Reset()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		_ = os.MkdirAll(dir, 0700)
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PULLRUNNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server_url", defaultServerURL)
	viper.SetDefault("output", "table")
	viper.SetDefault("log_level", "warn")

	flags := cmd.Root().PersistentFlags()
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("server_url", flags.Lookup("server"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))

	_ = viper.ReadInConfig()
	return nil
}

func initLogger() {
	log = logger.New(logger.Config{
		Level:  viper.GetString("log_level"),
		Format: "console",
		Output: stderr,
	})
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
		Credentials: client.CredentialFunc{
			Token: func() string { return viper.GetString("auth.token") },
			CSRF:  func() string { return viper.GetString("auth.csrf_token") },
		},
	})
	return nil
}

func initAuthenticatedClient() error {
	if err := initClient(); err != nil {
		return err
	}

	if viper.GetString("auth.token") == "" {
		return fmt.Errorf("not authenticated. Run 'pullrunner auth login' first")
	}
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}

// newEnv returns the controller env drawing on the terminal
func newEnv(term *terminal) controller.Env {
	return controller.Env{
		Client:    apiClient,
		Surface:   term,
		Validator: validator.New(),
		Logger:    log,
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".pullrunner"), nil
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func writeConfig() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return viper.WriteConfigAs(path)
}
