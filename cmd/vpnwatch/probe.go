package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/vpnwatch/pkg/health"
	"github.com/cuemby/vpnwatch/pkg/openvpn"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the management interface is reachable and answering",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		client, err := newStatusClient(cfg)
		if err != nil {
			return err
		}

		checkers := []health.Checker{
			openvpn.NewGreeter(cfg.Address()).WithTimeout(cfg.OpenVPN.DialTimeout),
			client,
		}

		healthy := true
		for _, checker := range checkers {
			result := checker.Check(cmd.Context())
			mark := "✓"
			if !result.Healthy {
				mark = "✗"
				healthy = false
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %s (%s)\n", mark, checker.Type(), result.Message, result.Duration.Round(time.Millisecond))
		}

		if !healthy {
			return errors.New("probe failed")
		}
		return nil
	},
}
