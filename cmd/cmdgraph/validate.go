package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/engine"
)

func buildValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the command file loads and compiles, with every redirect resolved",
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
			fmt.Fprintf(w, "%s: ok (%d nodes, %d redirects, fingerprint %s)\n",
				loader.Path(), snap.NodeCount, snap.Redirects, snap.Fingerprint[:12])
			if len(snap.Unreachable) > 0 {
				fmt.Fprintf(w, "warning: %d nodes unreachable from the root: %v\n", len(snap.Unreachable), snap.Unreachable)
			}
			return nil
		},
	}
}
