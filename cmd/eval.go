package cmd

import (
	"github.com/spf13/cobra"

	"github.com/snapstudio/snapstudio/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Photo classification evaluation tools",
		Long: `Evaluation tools for measuring how well the classification prompt and
model sort labelled product photos.

Supports inspecting labelled datasets, running the classifier over them and
reporting accuracy, per-category precision and recall, and the confusion matrix.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
