package main

import (
	"encoding/json"
	"fmt"

	"github.com/leg100/tokenproxy/internal/capability"
	"github.com/spf13/cobra"
)

func convertCommand() *cobra.Command {
	var flags minterFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert stream descriptors read from stdin",
		Long: `Convert stream descriptors read from stdin, replacing each url with a
link carrying the descriptor's headers. Input is a JSON object, or an array
of them. Descriptors without a url are passed through unchanged.`,
		Example:       `  curl -s https://catalog.example/streams.json | tokenproxy convert --base-url https://proxy.example`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			minter, err := flags.minter()
			if err != nil {
				return err
			}

			var input json.RawMessage
			if err := json.NewDecoder(cmd.InOrStdin()).Decode(&input); err != nil {
				return fmt.Errorf("reading descriptors: %w", err)
			}

			var output any
			switch {
			case len(input) > 0 && input[0] == '[':
				var streams []map[string]any
				if err := json.Unmarshal(input, &streams); err != nil {
					return fmt.Errorf("reading descriptors: %w", err)
				}
				converted := make([]map[string]any, len(streams))
				for i, stream := range streams {
					if converted[i], err = capability.Convert(stream, minter, flags.ttl); err != nil {
						return fmt.Errorf("converting descriptor %d: %w", i, err)
					}
				}
				output = converted
			default:
				var stream map[string]any
				if err := json.Unmarshal(input, &stream); err != nil {
					return fmt.Errorf("reading descriptor: %w", err)
				}
				if output, err = capability.Convert(stream, minter, flags.ttl); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		},
	}

	flags.add(cmd.Flags())

	return cmd
}
