package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "describe [text]",
		Short: "Show or set the persona's base description and injection settings",
		Long: "Set the base description (positional arg or stdin) and where it is injected. " +
			"A linked persona writes the native fields; an unlinked persona writes its local copy.",
		Run: runDescribe,
	}

	cmd.Flags().String("position", "", "Position: in_prompt, top_an, bottom_an, at_depth, none (or number)")
	cmd.Flags().Int("depth", model.DefaultDepth, "Injection depth for at_depth")
	cmd.Flags().String("role", "", "Role for at_depth: system, user, assistant (or number)")

	RootCmd.AddCommand(cmd)
}

type descriptionView struct {
	Persona string           `json:"persona"`
	Linked  bool             `json:"linked"`
	Live    model.LiveConfig `json:"live"`
	Local   model.Local      `json:"local"`
}

func runDescribe(cmd *cobra.Command, args []string) {
	content, err := readContent(cmd, args)
	if err != nil {
		exitErr("describe", err)
	}
	var pos *model.Position
	if s := stringFlag(cmd, "position"); s != nil {
		p, err := model.ParsePosition(*s)
		if err != nil {
			exitErr("describe", err)
		}
		pos = &p
	}
	var role *model.Role
	if s := stringFlag(cmd, "role"); s != nil {
		r, err := model.ParseRole(*s)
		if err != nil {
			exitErr("describe", err)
		}
		role = &r
	}
	depth, _ := cmd.Flags().GetInt("depth")
	setDepth := cmd.Flags().Changed("depth")

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var out descriptionView
	a.update(func() {
		if content = strings.TrimSpace(content); content != "" {
			a.blocks.SetDescription(content)
		}
		if pos != nil {
			a.blocks.SetPosition(*pos)
		}
		if setDepth {
			a.blocks.SetDepth(depth)
		}
		if role != nil {
			a.blocks.SetRole(*role)
		}
		out = descriptionView{
			Persona: a.host.CurrentAvatar(),
			Linked:  a.blocks.Linked(),
			Live:    *a.host.Live(),
			Local:   a.blocks.Local(),
		}
	})
	printJSON(cmd, out)
}
