// Package cmd provides functionality shared by the tokenproxy and tokenproxyd
// commands: setting flags from TOKENPROXY_ env variables, terminating on
// signals, and printing errors.
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/leg100/tokenproxy/internal"
)

// PrintError prints err to w. An error returned by a remote tokenproxyd is
// prefixed with its status code.
func PrintError(w io.Writer, err error) {
	var httpErr *internal.HTTPError
	if errors.As(err, &httpErr) {
		fmt.Fprintf(w, "%s tokenproxyd returned %d: %s\n", color.HiRedString("Error:"), httpErr.Code, err.Error())
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.HiRedString("Error:"), err.Error())
}
