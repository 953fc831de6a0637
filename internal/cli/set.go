package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-extended/internal/blocks"
	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "set [id]",
		Short: "Update an item or group",
		Long: "Update fields of an item or group. Only flags that are given change. " +
			"Advanced flags record AUTO-mode metadata; generation reads the enabled flag only.",
		Args: cobra.ExactArgs(1),
		Run:  runSet,
	}

	f := cmd.Flags()
	f.String("title", "", "Title")
	f.String("text", "", "Item text")
	f.Bool("enabled", true, "Enabled")
	f.Bool("collapsed", false, "Collapsed in the editor")
	f.Bool("adv-open", false, "Advanced panel open in the editor")
	f.Bool("connections", false, "Enable connection rules")
	f.StringSlice("chats", nil, "Connected chat ids")
	f.StringSlice("characters", nil, "Connected character ids")
	f.Bool("match-enabled", false, "Enable the match rule")
	f.String("match", "", "Match query: plain text or /regex/flags")

	RootCmd.AddCommand(cmd)
}

// advancedFromFlags applies changed advanced flags to a copy of cur. It
// returns nil when no advanced flag was given.
func advancedFromFlags(cmd *cobra.Command, cur *model.Advanced) (*model.Advanced, error) {
	f := cmd.Flags()
	names := []string{"adv-open", "connections", "chats", "characters", "match-enabled", "match"}
	changed := false
	for _, n := range names {
		changed = changed || f.Changed(n)
	}
	if !changed {
		return nil, nil
	}

	adv := cur.Clone()
	if adv == nil {
		adv = model.DefaultAdvanced()
	}
	if f.Changed("adv-open") {
		adv.AdvancedOpen, _ = f.GetBool("adv-open")
	}
	if f.Changed("connections") {
		adv.Connections.Enabled, _ = f.GetBool("connections")
	}
	if f.Changed("chats") {
		adv.Connections.Chats, _ = f.GetStringSlice("chats")
	}
	if f.Changed("characters") {
		adv.Connections.Characters, _ = f.GetStringSlice("characters")
	}
	if f.Changed("match-enabled") {
		adv.Match.Enabled, _ = f.GetBool("match-enabled")
	}
	if f.Changed("match") {
		q, _ := f.GetString("match")
		if q != "" {
			if _, err := model.ParseMatchRule(q); err != nil {
				return nil, err
			}
		}
		adv.Match.Query = q
	}
	return adv, nil
}

func runSet(cmd *cobra.Command, args []string) {
	id := args[0]
	f := cmd.Flags()

	a := mustOpen(cmd)
	defer a.close(cmd.Context())
	a.requirePersona()

	var (
		out any
		err error
	)
	a.update(func() {
		switch b := findBlock(a.blocks.List(), id).(type) {
		case *model.Item:
			var p blocks.ItemPatch
			if p.Advanced, err = advancedFromFlags(cmd, b.Advanced); err != nil {
				return
			}
			p.Title = stringFlag(cmd, "title")
			p.Text = stringFlag(cmd, "text")
			p.Enabled = boolFlag(cmd, "enabled")
			p.Collapsed = boolFlag(cmd, "collapsed")
			a.blocks.PatchItem(id, p)
			out = view(b)
		case *model.Group:
			if f.Changed("text") {
				err = fmt.Errorf("groups have no text")
				return
			}
			var p blocks.GroupPatch
			if p.Advanced, err = advancedFromFlags(cmd, b.Advanced); err != nil {
				return
			}
			p.Title = stringFlag(cmd, "title")
			p.Enabled = boolFlag(cmd, "enabled")
			p.Collapsed = boolFlag(cmd, "collapsed")
			a.blocks.PatchGroup(id, p)
			out = view(b)
		default:
			err = fmt.Errorf("block not found: %s", id)
		}
	})
	if err != nil {
		exitErr("set", err)
	}
	printJSON(cmd, out)
}

func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func boolFlag(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}
