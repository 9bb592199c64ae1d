package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reelkeeper/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout. HTML escaping
// is off so titles like "Tom & Jerry" survive verbatim.
func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// errorView is what a failing command prints under --json.
type errorView struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// reportError prints err for the operator: as an errorView when asJSON is
// set, else as a plain line. Validation and not-found faults drop the marker
// prefix since it only adds noise for the user.
func reportError(w io.Writer, err error, asJSON bool) {
	msg := err.Error()
	if services.IsUserFacing(err) {
		msg = userMessage(err)
	}
	if asJSON {
		if encErr := encodeJSON(w, errorView{Error: msg, Kind: services.Kind(err)}); encErr == nil {
			return
		}
	}
	fmt.Fprintln(w, msg)
}

func userMessage(err error) string {
	msg := err.Error()
	for _, marker := range []error{services.ErrValidation, services.ErrNotFound, services.ErrApplication} {
		if errors.Is(err, marker) {
			if trimmed, ok := strings.CutPrefix(msg, marker.Error()+": "); ok {
				return trimmed
			}
		}
	}
	return msg
}
