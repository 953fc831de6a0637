package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove extension data from every persona",
		Long:  "Remove blocks, settings and local descriptions from every persona and reset the extension settings. Native descriptions are kept.",
		Run:   runClear,
	}
	clearCmd.Flags().Bool("yes", false, "Confirm")

	enableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable prompt patching during generation",
		Run:   func(cmd *cobra.Command, args []string) { runSetEnabled(cmd, true) },
	}
	disableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable prompt patching during generation",
		Run:   func(cmd *cobra.Command, args []string) { runSetEnabled(cmd, false) },
	}

	RootCmd.AddCommand(clearCmd, enableCmd, disableCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to clear without --yes"))
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var n int
	a.update(func() { n = a.host.ClearAll() })
	printJSON(cmd, map[string]any{"ok": true, "cleared": n})
}

func runSetEnabled(cmd *cobra.Command, enabled bool) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	a.update(func() { a.host.SetEnabled(enabled) })
	printJSON(cmd, map[string]any{"ok": true, "enabled": enabled})
}
