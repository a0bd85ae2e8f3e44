package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/errors"
	"github.com/empaphy/composer-yaml/internal/manifest"
)

var validateNoLint bool

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a manifest against the composer schema",
	Long: `Validate the YAML manifest (or the manifest at path) against the bundled
composer schema, then check that the version and every package constraint
parse. Exits non-zero when any issue is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateNoLint, "no-lint", false, "Only run schema validation")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	var f *manifest.File
	if len(args) == 1 {
		f, err = s.open(args[0])
	} else {
		f, err = manifest.NewFile(s.host.YAMLManifestPath(), s.fileOptions()...)
	}
	if err != nil {
		return err
	}

	v, err := f.Read(cmd.Context())
	if err != nil {
		return err
	}
	result, err := manifest.Validate(v)
	if err != nil {
		return err
	}

	issues := result.Issues
	if !validateNoLint {
		issues = append(issues, manifest.Lint(v)...)
	}

	out := cmd.OutOrStdout()
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s is valid\n", f.Path())
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(out, "  %s\n", issue)
	}
	return errors.New(errors.ErrCodeInvalidManifest, "%s has %d issue(s)", f.Path(), len(issues))
}
