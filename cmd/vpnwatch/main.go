package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/vpnwatch/pkg/config"
	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/openvpn"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vpnwatch",
	Short: "vpnwatch - OpenVPN client notifications",
	Long: `vpnwatch polls an OpenVPN server's management interface and sends a
Pushover notification whenever a client connects or disconnects, plus an
alert when the management interface stops answering.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"vpnwatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.StringP("server", "s", "localhost", "Address of the OpenVPN server")
	flags.IntP("port", "p", 5555, "Management port of the OpenVPN server")
	flags.Duration("dial-timeout", openvpn.NewClient("").DialTimeout, "Timeout for connecting to the management interface")
	flags.Duration("read-timeout", openvpn.NewClient("").ReadTimeout, "Timeout for a complete status response")
	flags.String("malformed-policy", string(openvpn.PolicyAbort), "How to treat malformed client rows: abort or skip")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig merges flags, environment and config file, then initializes logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")

	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
		Output:     cmd.ErrOrStderr(),
	})
	return cfg, nil
}

// newStatusClient builds the management interface client for cfg
func newStatusClient(cfg *config.Config) (*openvpn.Client, error) {
	policy, err := openvpn.ParsePolicy(cfg.OpenVPN.MalformedPolicy)
	if err != nil {
		return nil, err
	}
	return openvpn.NewClient(cfg.Address()).
		WithTimeouts(cfg.OpenVPN.DialTimeout, cfg.OpenVPN.ReadTimeout).
		WithPolicy(policy), nil
}
