package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options are the root flags shared by every subcommand.
type Options struct {
	Port       string
	ConfigPath string
	LogLevel   string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           "herring",
		Short:         "Red Herring party game server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.Port, "port", "", "port to listen on (env: HERRING_PORT)")
	fs.StringVar(&opts.ConfigPath, "config", "config/config.yaml", "path to YAML config (env: HERRING_CONFIG)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (env: HERRING_LOG_LEVEL)")
	bindEnv(fs, "HERRING")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	return cmd
}

// bindEnv lets PREFIX_FLAG_NAME environment variables fill any flag the user
// did not pass explicitly.
func bindEnv(fs *pflag.FlagSet, prefix string) {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
