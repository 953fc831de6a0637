package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/blocks"
	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the current persona's composition settings",
		Long: "Show or change the wrapper and joiner used to compose the persona prompt. " +
			"The joiner understands \\n, \\t and \\\\ escapes. The template replaces {{PROMPT}}.",
		Run: runSettings,
	}

	cmd.Flags().Bool("wrapper", false, "Wrap the composed text in the template")
	cmd.Flags().String("template", "", "Wrapper template, e.g. <persona>{{PROMPT}}</persona>")
	cmd.Flags().String("joiner", "", `Joiner between description parts (default: \n\n)`)

	RootCmd.AddCommand(cmd)
}

func runSettings(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	p := blocks.SettingsPatch{
		WrapperEnabled:   boolFlag(cmd, "wrapper"),
		WrapperTemplate:  stringFlag(cmd, "template"),
		AdditionalJoiner: stringFlag(cmd, "joiner"),
	}
	var st model.Settings
	if p.WrapperEnabled != nil || p.WrapperTemplate != nil || p.AdditionalJoiner != nil {
		a.update(func() {
			a.blocks.PatchSettings(p)
			st = a.blocks.Settings()
		})
	} else {
		a.host.Update(func() { st = a.blocks.Settings() })
	}
	printJSON(cmd, st)
}
