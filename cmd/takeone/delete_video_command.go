package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteVideoCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-video <video-id>",
		Short: "Remove every indexed scene of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			deleted, err := store.DeleteVideo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d scene(s) of %s\n", deleted, args[0])
			return nil
		},
	}
	return cmd
}
