package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/ucmd/internal/logging"
	"github.com/smazurov/ucmd/internal/registry"
)

// CreateCardsCmd creates the command that lists registered and kernel cards.
func CreateCardsCmd() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:          "cards",
		Short:        "List registered sound cards and kernel cards",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			flags.initLogging()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.Load(flags.cards)
			if err != nil {
				return err
			}
			unmatched, err := reg.Discover(registry.KernelCards)
			if err != nil {
				logging.GetLogger(logging.ModuleRegistry).Warn("Kernel card scan failed", "error", err)
			}
			return printCards(cmd.OutOrStdout(), reg, unmatched)
		},
	}

	flags.register(cmd)
	return cmd
}

func printCards(out io.Writer, reg *registry.Registry, unmatched []registry.KernelCard) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tNUMBER\tCONTROL\tMASTER")
	for _, c := range reg.Cards() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Name, c.Number, c.ControlPath, c.MasterPath())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(unmatched) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nkernel cards without use case files:")
	for _, kc := range unmatched {
		fmt.Fprintf(out, "  %d: %s (%s, driver %s)\n", kc.Number, kc.ID, kc.Name, kc.Driver)
	}
	return nil
}
