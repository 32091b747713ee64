package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/taskboard/internal/app"
	"github.com/dori/taskboard/internal/config"
	"github.com/dori/taskboard/internal/ui"
	"github.com/dori/taskboard/internal/ui/theme"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var errNotLoggedIn = errors.New("not logged in, run `taskboard login` first")

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var themeName string

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "A terminal client for the team task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, themeName)
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/taskboard/taskboard.yml)")
	cmd.Flags().StringVar(&themeName, "theme", "", "Theme name ("+theme.NamesList()+")")

	cmd.AddCommand(loginCmd())
	cmd.AddCommand(logoutCmd())
	cmd.AddCommand(whoamiCmd())
	cmd.AddCommand(tasksCmd())
	cmd.AddCommand(usersCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskboard v%s\n", version)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// openApp opens the local state for a one-shot command
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.OneShot)
}

// openSession is openApp plus a restored, logged-in session
func openSession(cmd *cobra.Command) (*app.App, error) {
	a, err := openApp(cmd)
	if err != nil {
		return nil, err
	}
	a.Bootstrap(cmd.Context())
	if !a.Session.IsAuthenticated() {
		a.Close()
		return nil, errNotLoggedIn
	}
	return a, nil
}

func runTUI(cmd *cobra.Command, themeName string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if themeName == "" {
		themeName = cfg.Theme
	}
	if !theme.Set(themeName) {
		return fmt.Errorf("unknown theme %q (available: %s)", themeName, theme.NamesList())
	}

	application, err := app.New(cfg, app.Interactive)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(
		ui.NewRootModel(ctx, application),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
