package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/ucmd/internal/ucm"
)

// CreateValidateCmd creates the command that parses every verb file of a
// card and reports what was found.
func CreateValidateCmd() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "validate <card>",
		Short: "Parse every verb file of a card and report errors",
		Long: `Parses the card's master file and every verb file it lists, then prints
per-verb device, modifier and control counts. Exits non-zero if any file
failed to parse.`,
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

			return report(cmd.OutOrStdout(), sess.Snapshot(), sess.ParseErrors())
		},
	}

	flags.register(cmd)
	return cmd
}

func report(w io.Writer, snap ucm.CardSnapshot, parseErrs []string) error {
	fmt.Fprintf(w, "%s: %d verbs\n", snap.Card, len(snap.Verbs))
	for _, v := range snap.Verbs {
		ops := 0
		for _, r := range v.Records {
			ops += len(r.Enable) + len(r.Disable)
		}
		fmt.Fprintf(w, "  %-16s %-12s devices=%d modifiers=%d records=%d controls=%d\n",
			v.Name, v.File, len(v.Devices), len(v.Modifiers), len(v.Records), ops)
	}
	if len(parseErrs) == 0 {
		fmt.Fprintln(w, "ok")
		return nil
	}
	fmt.Fprintf(w, "%d errors:\n", len(parseErrs))
	for _, e := range parseErrs {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return fmt.Errorf("%s: %d verb files failed to parse", snap.Card, len(parseErrs))
}
