package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one item or group",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

type itemView struct {
	Type string `json:"type"`
	*model.Item
}

type groupView struct {
	Type string `json:"type"`
	*model.Group
}

// view tags a block with its kind for output.
func view(b model.Block) any {
	switch v := b.(type) {
	case *model.Item:
		return itemView{Type: model.KindItem, Item: v}
	case *model.Group:
		return groupView{Type: model.KindGroup, Group: v}
	}
	return nil
}

// findBlock looks up a group or an item at any level.
func findBlock(bs model.Blocks, id string) model.Block {
	if g := bs.Group(id); g != nil {
		return g
	}
	if it := bs.FindItem(id); it != nil {
		return it
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var b model.Block
	a.host.Update(func() { b = findBlock(a.blocks.List(), args[0]) })
	if b == nil {
		exitErr("get", fmt.Errorf("block not found: %s", args[0]))
	}
	printJSON(cmd, view(b))
}
