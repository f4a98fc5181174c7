package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnybach/low-level-file-server/internal/cli/output"
)

type segmentsResponse struct {
	Total    int            `json:"total"`
	Free     int            `json:"free"`
	Segments map[string]bool `json:"segments"`
}

// NewSegmentsCommand fetches /debug/segments from a running proxy's
// admin surface and renders it as a table, or as JSON/YAML for
// scripting. The cache daemon's admin surface has no such route.
func NewSegmentsCommand() *cobra.Command {
	var adminAddr, formatFlag string

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "show shared-memory segment pool occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(formatFlag)
			if err != nil {
				return fmt.Errorf("gfctl: %w", err)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://%s/debug/segments", adminAddr))
			if err != nil {
				return fmt.Errorf("gfctl: request /debug/segments: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gfctl: /debug/segments returned %s", resp.Status)
			}

			var body segmentsResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("gfctl: decode response: %w", err)
			}

			printer := output.NewPrinter(cmd.OutOrStdout(), format, false)
			if format == output.FormatTable {
				printer.Printf("total=%d free=%d\n", body.Total, body.Free)
				return printer.Print(newSegmentTable(body))
			}
			return printer.Print(body)
		},
	}

	cmd.Flags().StringVar(&adminAddr, "proxy", "127.0.0.1:9090", "admin surface address (host:port) of the daemon to query")
	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table, json, or yaml")
	return cmd
}

func newSegmentTable(body segmentsResponse) *output.TableData {
	ids := make([]string, 0, len(body.Segments))
	for id := range body.Segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := output.NewTableData("SEGMENT", "STATE")
	for _, id := range ids {
		state := "busy"
		if body.Segments[id] {
			state = "free"
		}
		table.AddRow(id, state)
	}
	return table
}
