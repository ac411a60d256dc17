// Command botticelli is the operator CLI for a running botticellid
// process: it drives the control-plane HTTP API to list, inspect, pause,
// resume, and trigger actors, and to browse their execution history.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crumplecup/botticelli/internal/config"
)

var (
	version = "dev"
	commit  = "none"

	configPath string
	serverAddr string
	authToken  string
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "botticelli",
		Short:        "botticelli operates a running botticellid actor host",
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigName, "path to the server's YAML configuration file, used to derive the server address if --server is unset; falls back through $BOTTICELLI_CONFIG, ./botticelli.yaml, $HOME/.botticelli/botticelli.yaml, and a bundled default")
	root.PersistentFlags().StringVar(&serverAddr, "server", "", "control-plane base URL or host:port (overrides --config)")
	root.PersistentFlags().StringVar(&authToken, "token", os.Getenv("BOTTICELLI_TOKEN"), "bearer token for mutating requests (defaults to $BOTTICELLI_TOKEN)")

	root.AddCommand(buildActorsCmd())
	return root
}

func newClientFromFlags() (*apiClient, error) {
	base, err := resolveBaseURL(configPath, serverAddr)
	if err != nil {
		return nil, err
	}
	return newAPIClient(base, authToken), nil
}
