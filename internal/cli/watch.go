package cli

import (
	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/errors"
	"github.com/empaphy/composer-yaml/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate composer.json whenever composer.yaml changes",
	Long: `Run an activation, then keep watching composer.yaml and regenerate
composer.json after every save. Malformed edits are reported and skipped.
Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	r, err := s.reconciler()
	if err != nil {
		return err
	}
	if r.YAML().IsRemote() {
		return errors.New(errors.ErrCodeConfiguration, "cannot watch remote manifest %s", r.YAML().Path())
	}

	if _, err := r.Activate(cmd.Context()); err != nil {
		return err
	}

	w, err := watch.New(r.YAML().Path(), r,
		watch.WithDebounce(s.settings.WatchDebounce),
		watch.WithLogger(s.logger),
	)
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}
