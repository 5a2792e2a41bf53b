package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lintfleet/internal/flags"
)

func newEnvironment() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(flags.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnvironment copies LINTFLEET_* values onto every flag that was not
// given on the command line. The flag's own parser validates the value.
func applyEnvironment(fs *pflag.FlagSet, v *viper.Viper) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "help" || !v.IsSet(f.Name) {
			return
		}
		if err := fs.Set(f.Name, v.GetString(f.Name)); err != nil {
			envName := flags.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			errs = append(errs, fmt.Errorf("%s: %w", envName, err))
		}
	})
	return errors.Join(errs...)
}
