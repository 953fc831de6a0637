package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/persona-extended/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [avatar]",
		Short: "Import a persona's blocks and settings",
		Long: "Replace the extension record of a persona (default: the current one) with JSON or YAML " +
			"from --file or stdin. Malformed fields are repaired on the way in.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	cmd.Flags().String("file", "", "Read from file instead of stdin")

	RootCmd.AddCommand(cmd)
}

// readInput reads path, or stdin when path is empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// toJSON returns data as JSON, converting from YAML when it is not JSON
// already.
func toJSON(data []byte) ([]byte, error) {
	if json.Valid(data) {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return b, nil
}

func runImport(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("file")
	data, err := readInput(cmd, path)
	if err != nil {
		exitErr("import", err)
	}
	raw, err := toJSON(data)
	if err != nil {
		exitErr("import", err)
	}

	a := mustOpen(cmd)
	defer a.close(cmd.Context())

	avatar := a.host.CurrentAvatar()
	if len(args) > 0 {
		avatar = args[0]
	}
	if avatar == "" {
		exitErr("import", errNoPersona)
	}

	var ext *model.Extension
	a.update(func() { ext, err = a.host.Import(avatar, raw) })
	if err != nil {
		exitErr("import", err)
	}
	items, groups := ext.Blocks.Count()
	printJSON(cmd, map[string]any{"ok": true, "persona": avatar, "items": items, "groups": groups})
}
