package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smazurov/ucmd/internal/ucm"
)

// Operation keywords accepted by the ucm command.
const (
	opGet  = "get"
	opGetI = "geti"
	opList = "list"
	opSet  = "set"
)

// op is one step of a ucm command line.
type op struct {
	kind       string
	identifier string
	value      string
}

// parseOps splits "get _verb set _verb HiFi _enadev Speaker list _enadevs"
// into steps. A set keyword is followed by one or more identifier/value
// pairs. The other keywords take a single identifier; list also accepts
// "" for the card list.
func parseOps(args []string) ([]op, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no operation given")
	}
	var ops []op
	for i := 0; i < len(args); {
		kind := args[i]
		i++
		switch kind {
		case opGet, opGetI, opList:
			if i >= len(args) {
				return nil, fmt.Errorf("%s: missing identifier", kind)
			}
			ops = append(ops, op{kind: kind, identifier: args[i]})
			i++
		case opSet:
			start := len(ops)
			for i < len(args) && !isKeyword(args[i]) {
				if i+1 >= len(args) {
					return nil, fmt.Errorf("set %s: missing value", args[i])
				}
				ops = append(ops, op{kind: opSet, identifier: args[i], value: args[i+1]})
				i += 2
			}
			if len(ops) == start {
				return nil, fmt.Errorf("set: missing identifier and value")
			}
		default:
			return nil, fmt.Errorf("unknown operation %q", kind)
		}
	}
	return ops, nil
}

func isKeyword(s string) bool {
	switch s {
	case opGet, opGetI, opList, opSet:
		return true
	}
	return false
}

// runOps applies ops in order and stops at the first failure.
func runOps(w io.Writer, sess *ucm.Session, ops []op) error {
	for _, o := range ops {
		switch o.kind {
		case opGet:
			v, err := sess.Get(o.identifier)
			if err != nil {
				return commandError("get "+o.identifier, err)
			}
			fmt.Fprintf(w, "%s=%s\n", o.identifier, v)
		case opGetI:
			v, err := sess.GetI(o.identifier)
			if err != nil {
				return commandError("geti "+o.identifier, err)
			}
			fmt.Fprintf(w, "%s=%d\n", o.identifier, v)
		case opList:
			values, err := sess.GetList(o.identifier)
			if err != nil {
				return commandError("list "+o.identifier, err)
			}
			fmt.Fprintf(w, "%s: %d\n", o.identifier, len(values))
			for i, v := range values {
				fmt.Fprintf(w, "  %d: %s\n", i, v)
			}
		case opSet:
			if err := sess.Set(o.identifier, o.value); err != nil {
				return commandError(fmt.Sprintf("set %s %s", o.identifier, o.value), err)
			}
		}
	}
	return nil
}

// CreateUCMCmd creates the one-shot use case command.
func CreateUCMCmd() *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "ucm <card> <op> [args]...",
		Short: "Run use case operations against a card",
		Long: `Opens a session for the card, applies the operations in order, prints
their results and closes the session. Operations:

  get <identifier>                  _verb, PlaybackPCM/<dev>, CaptureCTL, ...
  geti <identifier>                 _devstatus/<dev>, _modstatus/<mod>
  list <identifier>                 _verbs, _devices, _modifiers, _enadevs, _enamods
  set <identifier> <value> [...]    _verb, _enadev, _disdev, _enamod, _dismod,
                                    _swdev/<old>, _swmod/<old>

Example:

  ucmd ucm snd_soc_msm set _verb HiFi _enadev Speaker list _enadevs`,
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			flags.initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseOps(args[1:])
			if err != nil {
				return err
			}
			sess, mem, err := flags.openSession(cmd.Context(), args[0])
			if err != nil {
				return commandError("open "+args[0], err)
			}
			runErr := runOps(cmd.OutOrStdout(), sess, ops)
			closeSession(sess)
			printWrites(mem)
			return runErr
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Record mixer writes instead of touching hardware")
	cmd.Flags().BoolVar(&flags.wait, "wait", false, "Wait for every verb file to parse before running")
	return cmd
}
