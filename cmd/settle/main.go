// Command settle prints the settlement report for a session snapshot stored
// as JSON, such as the body of GET /sessions/{code}.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	pkgtypes "github.com/DoyleJ11/mahjong-settlement/pkg/types"
)

func main() {
	in := flag.String("in", "-", "snapshot JSON file, - for stdin")
	name := flag.String("name", "", "session name for the report header (defaults to the snapshot name)")
	flag.Parse()

	if err := run(*in, *name, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "settle:", err)
		os.Exit(1)
	}
}

func run(path, name string, stdin io.Reader, stdout io.Writer) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var snap pkgtypes.SnapshotInput
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	state := snap.State()
	settlement, err := state.Settlement()
	if err != nil {
		return err
	}

	if strings.TrimSpace(name) == "" {
		name = state.Name
	}
	_, err = fmt.Fprintln(stdout, engine.RenderReportText(settlement, name))
	return err
}
