package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"visitnotes/internal/app"
	"visitnotes/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newClient reads the config and creates a ClientApp. The caller must defer Close.
func newClient(command string) (*app.ClientApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewClientApp(cfg, command, app.ClientOptions{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing client: %w", err)
	}
	return a, nil
}

// newServer reads the config and creates a ServerApp. The caller must defer Close.
func newServer(ctx context.Context, command string, withProviders bool) (*app.ServerApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewServerApp(ctx, cfg, command, app.ServerOptions{Verbose: verbose, WithProviders: withProviders})
	if err != nil {
		return nil, fmt.Errorf("initializing server: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "visitnotes",
	Short:         "Record doctor visits and keep AI notes in sync",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newServer(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx, addr)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	rootCmd.AddCommand(appointmentsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(analysesCmd)
	rootCmd.AddCommand(audioCmd)
}
