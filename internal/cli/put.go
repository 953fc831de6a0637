package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/blocks"
	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add an additional description item",
		Long:  "Add an item to the current persona. Text can be a positional arg or piped via stdin. With --group the item is appended to that group.",
		Run:   runAdd,
	}

	cmd.Flags().StringP("title", "t", "", "Item title (default: Item N)")
	cmd.Flags().StringP("group", "g", "", "Group id to add the item to")
	cmd.Flags().Bool("disabled", false, "Add the item disabled")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	groupID, _ := cmd.Flags().GetString("group")
	disabled, _ := cmd.Flags().GetBool("disabled")

	content, err := readContent(cmd, args)
	if err != nil {
		exitErr("add", err)
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var it *model.Item
	a.update(func() {
		if groupID != "" {
			it = a.blocks.AddItemToGroup(groupID)
		} else {
			it = a.blocks.AddItem()
		}
		if it == nil {
			return
		}
		p := blocks.ItemPatch{}
		if strings.TrimSpace(content) != "" {
			p.Text = &content
		}
		if title = strings.TrimSpace(title); title != "" {
			p.Title = &title
		}
		if disabled {
			off := false
			p.Enabled = &off
		}
		a.blocks.PatchItem(it.ID, p)
	})
	if it == nil {
		exitErr("add", fmt.Errorf("group not found: %s", groupID))
	}
	printJSON(cmd, view(it))
}
