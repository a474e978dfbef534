package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cuemby/vpnwatch/pkg/api"
	"github.com/cuemby/vpnwatch/pkg/notify"
	"github.com/cuemby/vpnwatch/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the clients currently connected",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		client, err := newStatusClient(cfg)
		if err != nil {
			return err
		}

		roster, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		switch output {
		case "json":
			return writeRosterJSON(cmd.OutOrStdout(), roster)
		case "table", "":
			return writeRosterTable(cmd.OutOrStdout(), roster, time.Now())
		default:
			return fmt.Errorf("unknown output format %q (want table or json)", output)
		}
	},
}

func init() {
	statusCmd.Flags().StringP("output", "o", "table", "Output format: table or json")
}

func writeRosterTable(w io.Writer, roster types.Roster, now time.Time) error {
	if len(roster) == 0 {
		_, err := fmt.Fprintln(w, "No clients connected")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tCONNECTED\tRECEIVED\tSENT")
	for _, c := range roster.Clients() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			c.Address,
			humanize.RelTime(c.ConnectedSince, now, "ago", "from now"),
			notify.FormatBytes(c.BytesReceived),
			notify.FormatBytes(c.BytesSent),
		)
	}
	return tw.Flush()
}

func writeRosterJSON(w io.Writer, roster types.Roster) error {
	clients := make([]api.ClientResponse, 0, len(roster))
	for _, c := range roster.Clients() {
		clients = append(clients, api.ClientResponse{
			Name:           c.Name,
			Address:        c.Address,
			ConnectedSince: c.ConnectedSince,
			BytesReceived:  c.BytesReceived,
			BytesSent:      c.BytesSent,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(clients)
}
