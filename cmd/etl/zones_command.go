package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/avalanche"
	"github.com/spf13/cobra"
)

type zoneOutput struct {
	Center string `json:"center"`
	ZoneID int    `json:"zone_id"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url"`
}

func newZonesCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List the configured forecast zones and their upstream URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := resolveOutput(cmd, output)
			if err != nil {
				return err
			}
			cfg := ctx.cfg
			client := avalanche.NewClient(cfg.UpstreamBaseURL, http.DefaultClient, ctx.logger)

			zones := make([]zoneOutput, 0, len(cfg.Zones))
			for _, z := range cfg.Zones {
				zones = append(zones, zoneOutput{Center: z.Center, ZoneID: z.ID, Name: z.Name, URL: client.URL(z)})
			}

			if format == outputJSON {
				return writeJSON(cmd, zones)
			}

			rows := make([][]string, 0, len(zones))
			for _, z := range zones {
				rows = append(rows, []string{z.Center, strconv.Itoa(z.ZoneID), z.Name, z.URL})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Center", "Zone", "Name", "URL"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}
