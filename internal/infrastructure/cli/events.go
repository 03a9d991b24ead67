package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/autostack/autostack/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	eventsTypes  []string
	eventsTask   string
	eventsSince  time.Duration
	eventsLimit  int
	eventsJSON   bool
	eventsVerify bool
)

var eventsCmd = &cobra.Command{
	Use:   "events <project>",
	Short: "List the recorded events of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := requireProject(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if eventsVerify {
			idx, err := svc.Events.VerifyIntegrity()
			if err != nil {
				return err
			}
			if idx >= 0 {
				return NewCLIError("event log tampered", "", fmt.Errorf("event %d does not match its hash", idx))
			}
			n, _ := svc.Events.Count()
			fmt.Fprintf(out, "Event log intact (%d events)\n", n)
			return nil
		}

		filter := storage.EventFilter{Types: eventsTypes, TaskID: eventsTask, Limit: eventsLimit}
		if eventsSince > 0 {
			filter.Since = time.Now().Add(-eventsSince)
		}
		list, err := svc.Events.Query(filter)
		if err != nil {
			return err
		}
		if eventsJSON {
			return writeJSON(out, list)
		}
		for _, e := range list {
			fmt.Fprintf(out, "%s  %-18s %s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, formatMetadata(e.Metadata))
		}
		return nil
	},
}

// formatMetadata renders scalar metadata as sorted key=value pairs.
func formatMetadata(meta map[string]interface{}) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := meta[k].(type) {
		case map[string]interface{}, []interface{}:
			continue
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}

func init() {
	eventsCmd.Flags().StringSliceVar(&eventsTypes, "type", nil, "Only show events of these types")
	eventsCmd.Flags().StringVar(&eventsTask, "task", "", "Only show events of this task id")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 0, "Only show events newer than this, e.g. 2h")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 0, "Show at most this many of the latest events")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output as JSON")
	eventsCmd.Flags().BoolVar(&eventsVerify, "verify", false, "Check the hash chain instead of listing")
	RootCmd.AddCommand(eventsCmd)
}
