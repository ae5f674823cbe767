package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tileCaptcha/internal/challenge"
	"tileCaptcha/internal/session"
)

var segmentInput string

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Issue a challenge for one image and print its artifacts and correct cells",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := challenge.NewManager(cfg, session.NewMemoryStore(), nil)
		if err != nil {
			return err
		}
		ch, err := mgr.IssueFrom(cmd.Context(), segmentInput)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session:   %s\n", ch.ID)
		fmt.Fprintf(out, "segmented: %s\n", ch.Artifacts.Segmented)
		fmt.Fprintf(out, "mask:      %s\n", ch.Artifacts.Mask)
		fmt.Fprintf(out, "grid:      %s\n", ch.Artifacts.Grid)
		fmt.Fprintf(out, "correct:   %v\n", ch.Correct.Ints())
		return nil
	},
}

func init() {
	segmentCmd.Flags().StringVarP(&segmentInput, "input", "i", "", "Path to the challenge image")
	segmentCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(segmentCmd)
}
