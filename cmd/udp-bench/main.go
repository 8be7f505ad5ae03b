package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/loganszeto/udpkv/internal/bench"
	"github.com/loganszeto/udpkv/internal/buildinfo"
	"github.com/loganszeto/udpkv/internal/client"
)

var opts bench.Options

var rootCmd = &cobra.Command{
	Use:           "udp-bench",
	Short:         "Load generator for udp-server",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		res, err := bench.Run(ctx, opts)
		if errors.Is(err, bench.ErrBadOptions) {
			return err
		}
		res.Report(cmd.OutOrStdout())
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "udp-bench %s\n", buildinfo.String())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.Addr, "addr", "127.0.0.1:22200", "server address")
	flags.IntVar(&opts.Workers, "workers", 10, "concurrent senders")
	flags.IntVar(&opts.Ops, "ops", 10000, "total operations")
	flags.Float64Var(&opts.RatioGet, "ratio-get", 0.8, "fraction of operations that are gets")
	flags.IntVar(&opts.ValueSize, "value-size", 64, "value size in bytes")
	flags.IntVar(&opts.KeySpace, "keys", 1000, "number of distinct keys")
	flags.DurationVar(&opts.Timeout, "timeout", client.DefaultTimeout, "per request timeout")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
