// Package plugin implements the Stash plugin process contract: a single
// JSON object on stdin, a single JSON object on stdout, and level-tagged
// log lines with progress updates on stderr.
package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/stash-scene-export/pkg/stash"
)

// Input is the object Stash writes to the plugin's stdin.
type Input struct {
	ServerConnection stash.Connection `json:"server_connection"`
	Args             Args             `json:"args"`
}

// Args carries the task arguments configured on the plugin's task button.
type Args struct {
	Mode string `json:"mode"`
}

// HasMode reports whether the invocation requested the given task mode.
func (a Args) HasMode(mode string) bool {
	return strings.Contains(a.Mode, mode)
}

// Output is the single object the plugin writes to stdout before exiting.
// Exactly one of Output or Error is set.
type Output struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReadInput decodes the plugin input from r.
func ReadInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode plugin input: %w", err)
	}
	return &in, nil
}

// WriteOutput encodes the plugin output to w as a single JSON object.
func WriteOutput(w io.Writer, out Output) error {
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("encode plugin output: %w", err)
	}
	return nil
}
