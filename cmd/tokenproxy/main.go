// tokenproxy mints redeemable links offline, or via a remote tokenproxyd.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cmdutil "github.com/leg100/tokenproxy/cmd"
	"github.com/leg100/tokenproxy/internal"
	"github.com/spf13/cobra"
)

func main() {
	// Configure ^C to terminate program
	ctx, cancel := context.WithCancel(context.Background())
	cmdutil.CatchCtrlC(cancel)

	if err := Run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		cmdutil.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cmd := &cobra.Command{
		Use:           "tokenproxy",
		Short:         "Mint links for header-gated media",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       internal.Version,
		// Define run func in order to enable cobra's default help functionality
		Run: func(cmd *cobra.Command, args []string) {},
	}
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetVersionTemplate(fmt.Sprintf("%s\n", internal.Version))

	cmd.AddCommand(mintCommand())
	cmd.AddCommand(convertCommand())

	for _, sub := range cmd.Commands() {
		if err := cmdutil.SetFlagsFromEnvVariables(sub.Flags()); err != nil {
			return err
		}
	}
	return cmd.ExecuteContext(ctx)
}
