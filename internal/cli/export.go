package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [avatar]",
		Short: "Export a persona's blocks and settings",
		Long:  "Export the extension record of a persona (default: the current one) as JSON or YAML.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	avatar := a.host.CurrentAvatar()
	if len(args) > 0 {
		avatar = args[0]
	}
	if avatar == "" {
		exitErr("export", errNoPersona)
	}

	var (
		raw []byte
		err error
	)
	a.host.Update(func() { raw, err = a.host.Export(avatar) })
	if err != nil {
		exitErr("export", err)
	}

	switch format {
	case "json":
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	case "yaml":
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			exitErr("export", err)
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			exitErr("encode yaml", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	default:
		exitErr("export", fmt.Errorf("invalid format %q (valid: json, yaml)", format))
	}
}
