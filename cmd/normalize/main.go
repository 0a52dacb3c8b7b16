// Command normalize flattens one raw report export into the uniform table
// model and prints it. Input is either a gateway XML envelope or an already
// decoded JSON tree. Useful for inspecting how an unfamiliar export shape is
// recognized without running the API server.
//
// Usage:
//
//	normalize export.xml
//	cat export.json | normalize
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"tally_insights/pkg/core/normalize"
	"tally_insights/pkg/core/tally"
	"tally_insights/pkg/models"
)

func main() {
	var data []byte
	var err error

	if len(os.Args) > 1 {
		data, err = os.ReadFile(os.Args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	var raw models.RawExport
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
		raw, err = tally.ParseEnvelope(string(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "decode envelope: %v\n", err)
			os.Exit(1)
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		fmt.Fprintf(os.Stderr, "decode export: %v\n", err)
		os.Exit(1)
	}

	table := normalize.Normalize(raw)
	normalize.AggregateParents(table.Rows)

	out, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode table: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
