package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/engine"
)

func buildDumpCmd(a *app) *cobra.Command {
	var format, form, out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Compile the command file once and print the result",
		Example: `  cmdgraph dump --format json
  cmdgraph dump --format hex --form payload --out graph.hex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := a.loadCommandSet()
			if err != nil {
				return err
			}
			snap, err := engine.Compile(loader.Config(), argument.DefaultRegistry())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeDump(w, snap, format, form)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or hex")
	cmd.Flags().StringVar(&form, "form", "framed", "Bytes to print for hex: framed or payload")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func writeDump(w io.Writer, snap *engine.Snapshot, format, form string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "hex":
		body := snap.Packet
		switch form {
		case "framed":
		case "payload":
			body = snap.Payload
		default:
			return fmt.Errorf("unknown form %q", form)
		}
		_, err := fmt.Fprintln(w, hex.EncodeToString(body))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
