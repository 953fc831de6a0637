package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove an item or a group with its items",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	id := args[0]

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var kind string
	a.update(func() {
		switch findBlock(a.blocks.List(), id).(type) {
		case *model.Group:
			kind = model.KindGroup
			a.blocks.RemoveGroup(id)
		case *model.Item:
			kind = model.KindItem
			a.blocks.RemoveItem(id)
		}
	})
	if kind == "" {
		exitErr("rm", fmt.Errorf("block not found: %s", id))
	}
	printJSON(cmd, map[string]any{"ok": true, "removed": id, "kind": kind})
}
