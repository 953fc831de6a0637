package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "move [id] [delta]",
		Short: "Move a block up (negative) or down (positive) one place",
		Long:  "Swap a block with its neighbor. Top-level blocks move among top-level blocks; with --group an item moves inside that group.",
		Args:  cobra.ExactArgs(2),
		Run:   runMove,
	}

	cmd.Flags().StringP("group", "g", "", "Group id for moving an item inside a group")

	RootCmd.AddCommand(cmd)
}

func runMove(cmd *cobra.Command, args []string) {
	groupID, _ := cmd.Flags().GetString("group")
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		exitErr("move", fmt.Errorf("invalid delta %q: %w", args[1], err))
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var out any
	a.update(func() {
		if groupID != "" {
			a.blocks.MoveItemInGroup(groupID, args[0], delta)
			if g := a.blocks.List().Group(groupID); g != nil {
				out = view(g)
			}
			return
		}
		a.blocks.MoveBlock(args[0], delta)
		out = a.blocks.List()
	})
	if out == nil {
		exitErr("move", fmt.Errorf("group not found: %s", groupID))
	}
	printJSON(cmd, out)
}
