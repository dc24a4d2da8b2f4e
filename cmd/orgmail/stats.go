package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.io/infrasutra/orgmail/internal/config"
	"github.io/infrasutra/orgmail/internal/store"
	"github.io/infrasutra/orgmail/internal/view"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print mailbox counts and the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromCommand(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			st, closeStore, err := openStore(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			writeStats(cmd.OutOrStdout(), st.Snapshot())
			return nil
		},
	}
}

func writeStats(w io.Writer, snap store.Snapshot) {
	model := view.Dashboard(snap)
	fmt.Fprintf(w, "Incoming: %d\n", model.Summary.Incoming)
	fmt.Fprintf(w, "Outgoing: %d\n", model.Summary.Outgoing)
	fmt.Fprintf(w, "Archived: %d\n", model.Summary.Archived)
	if snap.User == nil {
		fmt.Fprintln(w, "Profile: not logged in")
		return
	}
	fmt.Fprintf(w, "Profile: %s <%s>, %s\n", snap.User.Name, snap.User.Email, snap.User.Department)
}
