package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <source> <target>",
	Short: "Convert a manifest between YAML and JSON",
	Long: `Read the source manifest and write it to the target path. The format of
each side follows its extension (.yaml/.yml or .json). The source may be an
http(s) URL; the target is only written when its content changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	src, err := s.open(args[0])
	if err != nil {
		return err
	}
	dst, err := s.open(args[1])
	if err != nil {
		return err
	}

	n, err := dst.Import(cmd.Context(), src)
	if err != nil {
		return err
	}

	if n == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", dst.Path())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes)\n", dst.Path(), dst.Format(), n)
	}
	return nil
}
