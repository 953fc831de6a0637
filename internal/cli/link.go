package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/blocks"
)

func init() {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Link the persona to its native description",
		Long: "Re-attach the persona to the native description fields. " +
			"--use native keeps the native values; --use extended writes the local copy into them.",
		Run: runLink,
	}
	linkCmd.Flags().String("use", "native", "Which values win: native or extended")

	unlinkCmd := &cobra.Command{
		Use:   "unlink",
		Short: "Unlink the persona, keeping a local copy of its description",
		Run:   runUnlink,
	}

	RootCmd.AddCommand(linkCmd, unlinkCmd)
}

func runLink(cmd *cobra.Command, args []string) {
	use, _ := cmd.Flags().GetString("use")
	var src blocks.LinkSource
	switch use {
	case "native":
		src = blocks.LinkSourceNative
	case "extended":
		src = blocks.LinkSourceExtended
	default:
		exitErr("link", fmt.Errorf("invalid --use %q (valid: native, extended)", use))
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var out descriptionView
	a.update(func() {
		a.blocks.Link(src)
		out = descriptionView{Persona: a.host.CurrentAvatar(), Linked: a.blocks.Linked(), Live: *a.host.Live(), Local: a.blocks.Local()}
	})
	printJSON(cmd, out)
}

func runUnlink(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var out descriptionView
	a.update(func() {
		a.blocks.Unlink()
		out = descriptionView{Persona: a.host.CurrentAvatar(), Linked: a.blocks.Linked(), Live: *a.host.Live(), Local: a.blocks.Local()}
	})
	printJSON(cmd, out)
}
