package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/persona-extended/internal/host"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import-legacy [file]",
		Short: "Import descriptions from the older flat per-persona list",
		Long: "Import a YAML or JSON map of avatar id to a list of {id, title, description, enabled} entries. " +
			"Entries are appended to each persona's blocks as top-level items; unknown personas are created.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImportLegacy,
	}

	RootCmd.AddCommand(cmd)
}

func runImportLegacy(cmd *cobra.Command, args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	data, err := readInput(cmd, path)
	if err != nil {
		exitErr("import legacy", err)
	}
	var entries map[string][]host.LegacyEntry
	if json.Valid(data) {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		exitErr("import legacy", fmt.Errorf("parse: %w", err))
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	var res host.LegacyResult
	a.update(func() { res, err = a.host.ImportLegacy(entries, a.blocks.NewID) })
	if err != nil {
		exitErr("import legacy", err)
	}
	printJSON(cmd, res)
}
