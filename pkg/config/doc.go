/*
Package config loads vpnwatch's configuration.

Values are layered with viper, highest precedence first:

 1. command-line flags (see FlagKeys)
 2. environment variables, VPNWATCH_ plus the upper-cased key with dots
    replaced by underscores (VPNWATCH_PUSHOVER_TOKEN)
 3. a YAML file: --config, or vpnwatch.yaml in the working directory,
    ~/.config/vpnwatch or /etc/vpnwatch
 4. built-in defaults

Example file:

	openvpn:
	  host: localhost
	  port: 5555
	monitor:
	  interval: 5s
	  failure_threshold: 3
	pushover:
	  token: your-application-token
	  user_key: your-user-key
*/
package config
