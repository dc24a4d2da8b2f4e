package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.io/infrasutra/orgmail/internal/config"
	"github.io/infrasutra/orgmail/internal/imagepick"
	"github.io/infrasutra/orgmail/internal/intake"
	"github.io/infrasutra/orgmail/internal/store"
)

func newImportMboxCmd() *cobra.Command {
	var mailType string

	cmd := &cobra.Command{
		Use:   "import-mbox [mbox file]",
		Short: "Add every message of an mbox archive as a mail record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := store.ParseMailType(mailType)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFromCommand(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open mbox: %w", err)
			}
			defer file.Close()

			ctx := context.Background()
			st, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			converter := intake.NewConverter(imagepick.New(cfg.MaxImageBytes), logger)
			imported, err := converter.ImportMbox(ctx, file, t, st)
			logger.Info("mbox import finished", "file", args[0], "type", t, "imported", imported)
			if err != nil {
				return fmt.Errorf("import mbox: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s letters\n", imported, t)
			return nil
		},
	}
	cmd.Flags().StringVar(&mailType, "type", string(store.Incoming), "Mailbox to import into: incoming or outgoing")
	return cmd
}
