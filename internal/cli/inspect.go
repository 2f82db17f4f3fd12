package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/realm"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [realm-id]",
		Short: "Print the saved world, or one realm's relations and memories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) == 0 {
				printWorld(cmd.OutOrStdout(), s.sim)
				return nil
			}
			id, err := realm.ParseID(args[0])
			if err != nil || !s.sim.Diplomacy.HasRealm(id) {
				return fmt.Errorf("no realm %q", args[0])
			}
			printRealm(cmd.OutOrStdout(), s.sim, id)
			return nil
		},
	}
}

func realmName(sim *engine.Simulation, id realm.ID) string {
	if snap, ok := sim.World.Realm(id); ok && snap.Name != "" {
		return snap.Name
	}
	return id.String()
}

func printWorld(out io.Writer, sim *engine.Simulation) {
	st := sim.Stats()
	fmt.Fprintf(out, "%s: %d realms, %d wars, %d alliances, %d treaties, %d conflicts\n\n",
		st.Date, st.Realms, st.Wars, st.Alliances, st.Treaties, st.Conflicts)

	type row struct {
		id       realm.ID
		prestige float64
	}
	var rows []row
	for _, id := range sim.Diplomacy.IDs() {
		r, ok := sim.Diplomacy.Realm(id)
		if !ok {
			continue
		}
		rows = append(rows, row{id, r.Prestige})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].prestige > rows[j].prestige })

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tREALM\tPERSONALITY\tPRESTIGE\tTREASURY\tALLIES\tENEMIES")
	for i, row := range rows {
		r, _ := sim.Diplomacy.Realm(row.id)
		treasury := 0.0
		if snap, ok := sim.World.Realm(row.id); ok {
			treasury = snap.Treasury
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f\t%s\t%d\t%d\n",
			humanize.Ordinal(i+1), row.id, realmName(sim, row.id), r.Personality,
			r.Prestige, humanize.Comma(int64(treasury)), len(r.Allies), len(r.Enemies))
	}
	tw.Flush()
}

func printRealm(out io.Writer, sim *engine.Simulation, id realm.ID) {
	r, _ := sim.Diplomacy.Realm(id)
	fmt.Fprintf(out, "%s (%d), %s, prestige %.1f, reputation %.2f, trustworthiness %.2f\n\n",
		realmName(sim, id), id, r.Personality, r.Prestige, r.Reputation, sim.Trust.Trustworthiness(id))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOWARD\tRELATION\tOPINION\tTRUST\tTREATIES\tMEMORIES")
	for _, other := range sim.Diplomacy.IDs() {
		if other == id {
			continue
		}
		v := sim.Diplomacy.View(id, other)
		var treaties []string
		for _, t := range v.Treaties {
			if t.Active {
				treaties = append(treaties, t.Type.String())
			}
		}
		memories := 0
		if l, ok := sim.Memory.Ledger(id, other); ok {
			memories = len(l.Events)
		}
		fmt.Fprintf(tw, "%s\t%s\t%+d\t%.2f\t%s\t%d\n",
			realmName(sim, other), v.State.Relation, v.State.Opinion, sim.Trust.Trust(id, other),
			orDash(strings.Join(treaties, ",")), memories)
	}
	tw.Flush()

	if decisions := sim.Decisions(id); len(decisions) > 0 {
		fmt.Fprintln(out, "\nConsidering:")
		for _, d := range decisions {
			fmt.Fprintf(out, "  %s toward %s (priority %.2f): %s\n", d.Move, realmName(sim, d.Target), d.Priority, d.Reason)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
