package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/compose"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Preview the composed persona prompt",
		Long:  "Compose the base description, enabled items and wrapper without touching the live persona fields.",
		Run:   runCompose,
	}

	cmd.Flags().Bool("text", false, "Only output the final text")

	RootCmd.AddCommand(cmd)
}

func runCompose(cmd *cobra.Command, args []string) {
	textOnly, _ := cmd.Flags().GetBool("text")

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var res compose.Result
	a.host.Update(func() { res = compose.Compose(a.host.Current(), a.host.Live()) })

	if textOnly {
		fmt.Fprintln(cmd.OutOrStdout(), res.FinalText)
		return
	}
	printJSON(cmd, res)
}
