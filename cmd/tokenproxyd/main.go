package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cmdutil "github.com/leg100/tokenproxy/cmd"
	"github.com/leg100/tokenproxy/internal"
	"github.com/leg100/tokenproxy/internal/daemon"
	"github.com/leg100/tokenproxy/internal/logr"
	"github.com/leg100/tokenproxy/internal/proxy"
	"github.com/spf13/cobra"
)

func main() {
	// Configure ^C to terminate program
	ctx, cancel := context.WithCancel(context.Background())
	cmdutil.CatchCtrlC(cancel)

	if err := parseFlags(ctx, os.Args[1:], os.Stdout); err != nil {
		cmdutil.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(ctx context.Context, args []string, out io.Writer) error {
	cfg := daemon.NewConfig()

	cmd := &cobra.Command{
		Use:           "tokenproxyd",
		Short:         "tokenproxy daemon",
		Long:          "tokenproxyd redeems links to header-gated media, relaying the media to the caller.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       internal.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger, err := logr.New(cfg.LogConfig)
			if err != nil {
				return err
			}

			d, err := daemon.New(logger, cfg)
			if err != nil {
				return err
			}
			// block until ^C received
			return d.Start(ctx, make(chan struct{}))
		},
	}
	cmd.SetOut(out)
	cmd.SetArgs(args)
	cmd.SetVersionTemplate(fmt.Sprintf("%s\n", internal.Version))

	cmd.Flags().StringVar(&cfg.Address, "address", cfg.Address, "Listening address")
	cmd.Flags().Var(&cfg.Secret, "secret", "Hex-encoded secret of at least 16 bytes for signing links. Unsigned links are refused when set.")
	cmd.Flags().BoolVar(&cfg.SSL, "ssl", false, "Toggle SSL")
	cmd.Flags().StringVar(&cfg.CertFile, "cert-file", "", "Path to SSL certificate (required if enabling SSL)")
	cmd.Flags().StringVar(&cfg.KeyFile, "key-file", "", "Path to SSL key (required if enabling SSL)")
	cmd.Flags().BoolVar(&cfg.EnableRequestLogging, "log-http-requests", false, "Log HTTP requests")

	proxy.LoadConfigFromFlags(cmd.Flags(), &cfg.ProxyConfig)
	logr.LoadConfigFromFlags(cmd.Flags(), &cfg.LogConfig)

	if err := cmdutil.SetFlagsFromEnvVariables(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to populate config from environment vars: %w", err)
	}

	return cmd.ExecuteContext(ctx)
}
