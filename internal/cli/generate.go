package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/host"
	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a simulated generation and show the persona prompt it received",
		Long: "Run the host generation lifecycle once. The composed persona prompt is patched into the live " +
			"fields before prompt assembly and restored when the generation ends or stops.",
		Run: runGenerate,
	}

	cmd.Flags().Bool("dry-run", false, "Dry run (token counting); no patch is applied")
	cmd.Flags().Bool("stop", false, "Stop the generation after prompt assembly")

	RootCmd.AddCommand(cmd)
}

type generateView struct {
	*host.PromptPreview
	Restored model.LiveConfig `json:"restored"`
}

func runGenerate(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	stop, _ := cmd.Flags().GetBool("stop")

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	out, err := a.host.Generate(cmd.Context(), host.GenerateOptions{DryRun: dryRun, Stop: stop})
	if err != nil {
		exitErr("generate", err)
	}
	printJSON(cmd, generateView{PromptPreview: out, Restored: *a.host.Live()})
}
