package cmd

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/antnet/antnet/state"
	"github.com/spf13/cobra"
)

// TableView is the latest state of a node reconstructed from its event stream.
type TableView struct {
	Router     string
	Time       string
	Routing    state.RouteSnapshot
	Pheromones state.Snapshot
	Counts     map[state.EventKind]int
	Skipped    int
}

// ReadEvents folds an event stream into a TableView. Lines that are not events are counted and skipped.
func ReadEvents(r io.Reader) (*TableView, error) {
	view := &TableView{Counts: make(map[state.EventKind]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		ev, err := state.DecodeEvent(sc.Bytes())
		if err != nil {
			view.Skipped++
			continue
		}
		view.Counts[ev.Kind]++
		if ev.Router != "" {
			view.Router = ev.Router
		}
		if ev.Kind == state.EventTable {
			view.Time = ev.Time
			if ev.Routing != nil {
				view.Routing = ev.Routing
			}
			if ev.Pheromones != nil {
				view.Pheromones = ev.Pheromones
			}
		}
	}
	return view, sc.Err()
}

func formatMetric(m state.Metric) string {
	if math.IsInf(float64(m), 1) {
		return "inf"
	}
	return fmt.Sprintf("%.3f", float64(m))
}

func (v *TableView) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Routing table (%s) at %s\n", v.Router, v.Time)
	fmt.Fprintln(tw, "DESTINATION\tNEXT HOP\tMETRIC\tUPDATED")
	for _, dest := range slices.Sorted(maps.Keys(v.Routing)) {
		r := v.Routing[dest]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", dest, r.NextHop, formatMetric(r.Metric), r.LastUpdated.Format(state.EventTimeFormat))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DESTINATION\tNEXT HOP\tPHEROMONE")
	for _, dest := range slices.Sorted(maps.Keys(v.Pheromones)) {
		hops := v.Pheromones[dest]
		for _, hop := range slices.Sorted(maps.Keys(hops)) {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\n", dest, hop, hops[hop])
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "events: hello=%d update=%d error=%d table=%d info=%d skipped=%d\n",
		v.Counts[state.EventHello], v.Counts[state.EventUpdate], v.Counts[state.EventError],
		v.Counts[state.EventTable], v.Counts[state.EventInfo], v.Skipped)
	return tw.Flush()
}

var inspectCmd = &cobra.Command{
	Use:     "inspect [event log]",
	Aliases: []string{"i"},
	Short:   "Prints the latest tables found in a node's event stream",
	Long:    `Reads the JSON event stream written by "antnet run" from a file (or stdin when omitted) and prints the most recent routing and pheromone tables.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		view, err := ReadEvents(in)
		if err != nil {
			return err
		}
		return view.Write(cmd.OutOrStdout())
	},
	GroupID: "tools",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
