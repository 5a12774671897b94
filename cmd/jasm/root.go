package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/risor-io/jasm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var red = color.New(color.FgRed).SprintFunc()

// newConfig returns a viper instance with the defaults of every setting.
// Settings come from flags, JASM_* environment variables and jasm.yaml.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("jasm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("major", 52)
	v.SetDefault("minor", 0)
	v.SetDefault("max_stack", jasm.DefaultMaxStack)
	v.SetDefault("max_locals", jasm.DefaultMaxLocals)
	v.SetDefault("computed_limits", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("store.kind", "file")
	v.SetDefault("store.dir", "classes")
	v.SetDefault("store.s3.region", "us-east-1")
	return v
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "jasm",
		Short:         "Assemble, inspect and publish JVM class files",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfigFile(v); err != nil {
				return err
			}
			if v.GetBool("no_color") || !isTerminal(cmd.OutOrStdout()) {
				color.NoColor = true
			}
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./jasm.yaml, then ~/.config/jasm/jasm.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("computed-limits", false, "compute max stack and max locals")
	v.BindPFlag("config", flags.Lookup("config"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("no_color", flags.Lookup("no-color"))
	v.BindPFlag("computed_limits", flags.Lookup("computed-limits"))

	root.AddCommand(newHelloCmd(v), newDisCmd(v), newPublishCmd(v))
	return root
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return err
		}
		v.SetConfigFile(expanded)
		return v.ReadInConfig()
	}
	v.SetConfigName("jasm")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "jasm"))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newLogger returns a console logger on stderr at the configured level.
func newLogger(v *viper.Viper) zerolog.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log_level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// assemblerOptions maps configuration to assembler options. Version and
// limit values must fit in 16 bits.
func assemblerOptions(v *viper.Viper, logger zerolog.Logger) ([]jasm.Option, error) {
	var values [4]uint16
	for i, key := range []string{"major", "minor", "max_stack", "max_locals"} {
		n, err := configUint16(v, key)
		if err != nil {
			return nil, err
		}
		values[i] = n
	}
	opts := []jasm.Option{
		jasm.WithLogger(logger),
		jasm.WithVersion(values[0], values[1]),
		jasm.WithLimits(values[2], values[3]),
	}
	if v.GetBool("computed_limits") {
		opts = append(opts, jasm.WithComputedLimits())
	}
	return opts, nil
}

func configUint16(v *viper.Viper, key string) (uint16, error) {
	n := v.GetInt64(key)
	if n < 0 || n > math.MaxUint16 {
		return 0, fmt.Errorf("config: %s is %d, must be between 0 and %d", key, n, math.MaxUint16)
	}
	return uint16(n), nil
}
