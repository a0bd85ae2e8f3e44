package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/reconcile"
)

func init() {
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(syncCmd)
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Regenerate composer.json from composer.yaml",
	Long: `Seed composer.yaml from composer.json when it does not exist yet, then
regenerate composer.json from composer.yaml and reload the configuration.
Run this from the host's activation hook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := activate(cmd)
		return err
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Copy composer.json back to composer.yaml when they differ",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		r, err := s.reconciler()
		if err != nil {
			return err
		}
		_, err = r.Deactivate(cmd.Context())
		return err
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Run the uninstall hook",
	Long:  `Both manifests are left in place on uninstall; there is nothing to clean up.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loggerFromContext(cmd.Context()).Debug("Uninstalled; manifests left in place")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Activate and report what changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := activate(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.result.Seeded {
			fmt.Fprintf(out, "Created %s from %s\n", filepath.Base(res.yamlPath), filepath.Base(res.jsonPath))
		}
		if res.result.JSONBytes > 0 {
			fmt.Fprintf(out, "Updated %s (%d bytes)\n", filepath.Base(res.jsonPath), res.result.JSONBytes)
		} else {
			fmt.Fprintf(out, "%s is up to date\n", filepath.Base(res.jsonPath))
		}
		fmt.Fprintf(out, "Package: %s\n", res.composite)
		return nil
	},
}

type activation struct {
	result    *reconcile.Result
	yamlPath  string
	jsonPath  string
	composite fmt.Stringer
}

// activate runs the activation transition and reloads the host view of
// the regenerated manifest.
func activate(cmd *cobra.Command) (*activation, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, err
	}
	r, err := s.reconciler()
	if err != nil {
		return nil, err
	}

	res, err := r.Activate(cmd.Context())
	if err != nil {
		return nil, err
	}

	comp, err := s.host.Reload(cmd.Context(), r.JSON().Path())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Configuration reloaded", "package", comp.String(), "state", res.State)

	return &activation{
		result:    res,
		yamlPath:  r.YAML().Path(),
		jsonPath:  r.JSON().Path(),
		composite: comp,
	}, nil
}
