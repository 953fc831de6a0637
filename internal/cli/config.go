package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rcliao/persona-extended/internal/host"
	"github.com/rcliao/persona-extended/internal/patch"
)

const envPrefix = "PME"

func setDefaults() {
	home, _ := os.UserHomeDir()
	viper.SetDefault("db", filepath.Join(home, ".pme", "pme.db"))
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("patch.restore_timeout", patch.DefaultRestoreTimeout)
	viper.SetDefault("save.debounce", host.DefaultSaveDebounce)
}

func initConfig() {
	setDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if strings.TrimSpace(cfgFile) == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		exitErr("read config", err)
	}
}

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine-readable.
func newLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	switch strings.ToLower(format) {
	case "json":
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: console, json)", format)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Named("pme"), nil
}
