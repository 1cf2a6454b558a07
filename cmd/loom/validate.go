package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eventloom/eventloom/internal/config"
	"github.com/eventloom/eventloom/internal/event"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a configuration document without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			cat, err := cfg.Catalog()
			if err != nil {
				return err
			}
			if err := cfg.Validate(cat); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			counts := make(map[event.Kind]int)
			for _, ev := range cat.All() {
				counts[ev.Kind]++
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok\n", args[0])
			fmt.Fprintf(out, "  events: %d", cat.Len())
			for _, ev := range cat.All() {
				if n := counts[ev.Kind]; n > 0 {
					fmt.Fprintf(out, " %s=%d", ev.Kind, n)
					delete(counts, ev.Kind)
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  start_with: %d  mqtt pools: %d  http endpoints: %d  api pools: %d\n",
				len(cfg.StartWith), len(cfg.Mqtt), len(cfg.HTTP), len(cfg.API))
			return nil
		},
	}
}
