package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the current persona's blocks",
		Run:   runList,
	}

	cmd.Flags().Bool("ids-only", false, "Only output block ids and titles")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var bs model.Blocks
	a.host.Update(func() { bs = a.blocks.List() })

	if idsOnly {
		out := cmd.OutOrStdout()
		for _, b := range bs {
			switch v := b.(type) {
			case *model.Item:
				fmt.Fprintf(out, "%s\t%s\n", v.ID, v.Title)
			case *model.Group:
				fmt.Fprintf(out, "%s\t[%s]\n", v.ID, v.Title)
				for _, it := range v.Items {
					fmt.Fprintf(out, "  %s\t%s\n", it.ID, it.Title)
				}
			}
		}
		return
	}

	printJSON(cmd, bs)
}
