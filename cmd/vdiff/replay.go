package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/journal"
)

func replayCmd(flags *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "replay [journal]",
		Short: "Replay a patch journal and check every cycle",
		Long: `Replay the cycles recorded in a patch journal on an in-memory live tree.
Every cycle's patches are applied to the tree built so far and the result
is compared with the cycle's recorded tree.

The journal path defaults to journal.path from the configuration.

Examples:
  vdiff replay
  vdiff replay demo.journal -v`,
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			path := cfg.JournalPath()
			if len(args) == 1 {
				path = args[0]
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			report, err := journal.Replay(j)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, d := range report.Divergences {
				warn(w, "cycle %d (entry %d) diverged", d.Seq, d.Key)
				info(w, "error: %v", d.Err)
				if verbose && d.Got != "" {
					info(w, "want: %s", d.Want)
					info(w, "got:  %s", d.Got)
				}
			}
			summary := fmt.Sprintf("%d run(s), %d cycle(s), %d patch(es)", report.Runs, report.Cycles, report.Patches)
			if !report.OK() {
				return errors.New("E212").
					WithDetail(fmt.Sprintf("%d of %s diverged", len(report.Divergences), summary))
			}
			success(w, "Replayed %s", summary)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the expected and actual HTML of diverged cycles")
	return cmd
}
