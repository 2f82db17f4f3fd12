package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/concord/internal/engine"
)

func newStepCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "step [months]",
		Short: "Advance the saved world by a number of months as fast as possible",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			months := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("months must be a positive number, got %q", args[0])
				}
				months = n
			}

			cfg, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			start := time.Now()
			s.eng.OnMonth = s.sim.TickMonth
			for range months {
				s.eng.Step()
			}
			if err := s.save(); err != nil {
				return fmt.Errorf("save: %w", err)
			}

			st := s.sim.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Advanced %d months in %s, now %s.\n", months, time.Since(start).Round(time.Millisecond), engine.SimTime(st.Month))
			fmt.Fprintf(out, "%d wars, %d alliances, %d treaties, %d conflicts (%d flashpoints).\n",
				st.Wars, st.Alliances, st.Treaties, st.Conflicts, st.Flashpoints)
			fmt.Fprintf(out, "Treasury across all realms: %s. Average opinion %.1f, average trust %.2f.\n",
				humanize.Comma(int64(st.Treasury)), st.AvgOpinion, st.AvgTrust)
			return nil
		},
	}
}
