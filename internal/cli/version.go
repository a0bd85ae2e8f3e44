package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/errors"
)

var (
	versionShort bool
	versionJSON  bool
)

// buildInfo describes this binary and the manifest pair it manages.
type buildInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Built    string `json:"built"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
	Manifest string `json:"manifest"`
	Source   string `json:"source"`
	Repo     string `json:"repository"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Name:     branding.CLIName(),
		Version:  orUnknown(buildVersion),
		Commit:   orUnknown(buildCommit),
		Built:    orUnknown(buildDate),
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Manifest: branding.JSONFilename(),
		Source:   branding.YAMLFilename(),
		Repo:     branding.GitHubRepo(),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// String renders the two-line human summary.
func (b buildInfo) String() string {
	return fmt.Sprintf("%s %s (%s, built %s, %s %s)\nsyncs %s -> %s\n",
		b.Name, b.Version, b.Commit, b.Built, b.Go, b.Platform, b.Source, b.Manifest)
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build info as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build and manifest information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		out := cmd.OutOrStdout()

		switch {
		case versionShort:
			fmt.Fprintln(out, info.Version)
		case versionJSON:
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return errors.Wrap(errors.ErrCodeWrite, err, "encoding build info")
			}
			fmt.Fprintf(out, "%s\n", data)
		default:
			fmt.Fprint(out, info)
		}
		return nil
	},
}
