package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/host"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persona and block statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var st *host.Stats
	a.host.Update(func() { st = a.host.Stats() })
	printJSON(cmd, st)
}
