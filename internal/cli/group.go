package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "group [title]",
		Short: "Add a group of items",
		Run:   runGroup,
	}

	RootCmd.AddCommand(cmd)
}

func runGroup(cmd *cobra.Command, args []string) {
	title := strings.TrimSpace(strings.Join(args, " "))

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var g *model.Group
	a.update(func() { g = a.blocks.AddGroup(title) })
	printJSON(cmd, view(g))
}
