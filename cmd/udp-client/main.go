package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loganszeto/udpkv/internal/buildinfo"
	"github.com/loganszeto/udpkv/internal/client"
	"github.com/loganszeto/udpkv/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "udp-client [command...]",
	Short: "Send requests to a udp-server",
	Args:  cobra.ArbitraryArgs,
	Long: `With arguments, sends them as one request and prints the raw reply.
Without arguments, starts an interactive prompt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "udp-client %s\n", buildinfo.String())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (toml, yaml or json)")
	flags.String("host", "127.0.0.1", "server host")
	flags.Int("port", 22200, "server port")
	flags.Duration("timeout", client.DefaultTimeout, "read and write timeout per request")
	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, args []string) error {
	config.LoadEnvFiles(".")
	cfg, err := config.LoadClient(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	c := client.New(cfg.SocketAddress(), cfg.Timeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if len(args) > 0 {
		reply, err := c.Send(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "udp-client %s sending to %s, type help or quit\n", buildinfo.Version, c.Addr())
	return client.NewREPL(c, client.NewConsoleReader(cmd.InOrStdin(), out), out).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
