// Package cli implements the pme CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "pme",
	Short: "Persona description blocks and prompt composition",
	Long: "Manage additional persona description blocks, link or unlink a persona from its native description, " +
		"and preview the persona prompt that generation would see. SQLite-backed, single binary.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	pf.StringP("db", "d", "", "Database path (default: $PME_DB or ~/.pme/pme.db)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (default: warn)")
	pf.String("log-format", "", "Log format: console or json (default: console)")

	_ = viper.BindPFlag("db", pf.Lookup("db"))
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(cmd *cobra.Command, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("encode output", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// readContent returns args joined by spaces, or stdin when args are empty
// and stdin is not a terminal.
func readContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
