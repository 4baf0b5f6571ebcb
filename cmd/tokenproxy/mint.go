package main

import (
	"fmt"
	"time"

	"github.com/leg100/tokenproxy/internal"
	tphttp "github.com/leg100/tokenproxy/internal/http"
	"github.com/spf13/cobra"
)

func mintCommand() *cobra.Command {
	var (
		flags   minterFlags
		headers []string
		remote  internal.WebURL
		retry   bool
	)

	cmd := &cobra.Command{
		Use:   "mint [url]",
		Short: "Mint a link to a header-gated url",
		Long: `Mint a link to a header-gated url. The link carries the headers and
can be fetched by any client until it expires.

The link is minted offline unless --remote is given, in which case it is
generated by the tokenproxyd service at that address.`,
		Example:       `  tokenproxy mint --base-url https://proxy.example -H 'Referer: https://app.example' https://cdn.example/master.m3u8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			if remote.URL != nil {
				client, err := tphttp.NewClient(tphttp.ClientConfig{
					URL:           remote.String(),
					RetryRequests: retry,
				})
				if err != nil {
					return err
				}
				link, err := client.Generate(cmd.Context(), args[0], parsed, int64(flags.ttl/time.Second))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link.URL)
				return nil
			}

			minter, err := flags.minter()
			if err != nil {
				return err
			}
			link, err := minter.Mint(args[0], parsed, flags.ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.URL)
			return nil
		},
	}

	flags.add(cmd.Flags())
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Header to send to the url, as 'Name: value'. May be given more than once.")
	cmd.Flags().Var(&remote, "remote", "Generate the link with the tokenproxyd service at this URL rather than offline.")
	cmd.Flags().BoolVar(&retry, "retry", false, "Retry remote requests upon transient errors.")

	return cmd
}
