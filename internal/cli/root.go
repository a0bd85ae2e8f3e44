package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/config"
	"github.com/empaphy/composer-yaml/internal/errors"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose    bool
	workingDir string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a YAML project manifest and the JSON manifest Composer reads
in sync. While the plugin is active composer.yaml is the source of truth and
composer.json is regenerated from it; on deactivation the JSON file is copied
back to YAML when the two differ.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withLogger(ctx, newLogger(cmd.ErrOrStderr(), level)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workingDir, "working-dir", "d", "", "Use the given directory as working directory")
}

// Execute runs the root command with build info injected via ldflags.
// Errors are reported on stderr; the caller only sets the exit status.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", errors.UserMessage(err))
}
