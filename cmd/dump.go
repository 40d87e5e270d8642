package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smazurov/ucmd/internal/ucm"
)

// Dump output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// CreateDumpCmd creates the command that prints a fully parsed card.
func CreateDumpCmd() *cobra.Command {
	var flags sessionFlags
	var format string

	cmd := &cobra.Command{
		Use:          "dump <card>",
		Short:        "Print the parsed use case configuration of a card",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			flags.initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.dryRun = true
			flags.wait = true

			sess, _, err := flags.openSession(cmd.Context(), args[0])
			if err != nil {
				return commandError("open "+args[0], err)
			}
			defer closeSession(sess)

			return writeSnapshot(cmd.OutOrStdout(), sess.Snapshot(), format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", FormatYAML, "Output format (yaml, json)")
	return cmd
}

func writeSnapshot(w io.Writer, snap ucm.CardSnapshot, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return fmt.Errorf("unknown format %q", format)
}
