package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage personas",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List personas with a description preview",
		Run:   runPersonaList,
	}
	createCmd := &cobra.Command{
		Use:   "create [avatar] [name]",
		Short: "Create a persona",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runPersonaCreate,
	}
	createCmd.Flags().Bool("use", false, "Select the new persona")

	useCmd := &cobra.Command{
		Use:   "use [avatar]",
		Short: "Select the current persona",
		Args:  cobra.ExactArgs(1),
		Run:   runPersonaUse,
	}
	rmCmd := &cobra.Command{
		Use:   "rm [avatar]",
		Short: "Delete a persona",
		Args:  cobra.ExactArgs(1),
		Run:   runPersonaRm,
	}

	cmd.AddCommand(listCmd, createCmd, useCmd, rmCmd)
	RootCmd.AddCommand(cmd)
}

func runPersonaList(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	printJSON(cmd, a.host.Personas())
}

func runPersonaCreate(cmd *cobra.Command, args []string) {
	use, _ := cmd.Flags().GetBool("use")
	name := ""
	if len(args) > 1 {
		name = args[1]
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var err error
	a.update(func() {
		if _, err = a.host.CreatePersona(args[0], name); err == nil && use {
			err = a.host.SelectPersona(args[0])
		}
	})
	if err != nil {
		exitErr("create persona", err)
	}
	p, _ := a.host.Persona(args[0])
	printJSON(cmd, p)
}

func runPersonaUse(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var err error
	a.update(func() { err = a.host.SelectPersona(args[0]) })
	if err != nil {
		exitErr("use persona", err)
	}
	printJSON(cmd, map[string]any{"ok": true, "current": a.host.CurrentAvatar(), "live": a.host.Live()})
}

func runPersonaRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var err error
	a.update(func() { err = a.host.RemovePersona(args[0]) })
	if err != nil {
		exitErr("remove persona", err)
	}
	printJSON(cmd, map[string]any{"ok": true, "removed": args[0]})
}
