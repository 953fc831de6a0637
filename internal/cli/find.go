package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/host"
	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Find blocks across all personas",
		Long:  "Search block titles and item text. The query is plain text (case-insensitive) or /regex/flags.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFind,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	rule, err := model.ParseMatchRule(strings.Join(args, " "))
	if err != nil {
		exitErr("find", err)
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var hits []host.SearchHit
	a.host.Update(func() { hits = a.host.Search(rule, limit) })

	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd, hits)
}
