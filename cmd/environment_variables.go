package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	EnvironmentVariablePrefix = "TOKENPROXY_"

	// fileSuffix marks an env var whose value is the path to a file
	// containing the flag value, e.g. TOKENPROXY_SECRET_FILE.
	fileSuffix = "_FILE"
)

// SetFlagsFromEnvVariables sets each flag from an env variable whose name
// starts with `TOKENPROXY_`, or from the contents of the file named by the
// same variable suffixed with `_FILE`. The former takes precedence.
func SetFlagsFromEnvVariables(fs *pflag.FlagSet) (err error) {
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		envVar := flagToEnvVarName(f)
		if val, present := os.LookupEnv(envVar); present {
			err = fs.Set(f.Name, val)
			return
		}
		// flags that themselves name files are not read indirectly
		if strings.HasSuffix(envVar, fileSuffix) {
			return
		}
		path, present := os.LookupEnv(envVar + fileSuffix)
		if !present {
			return
		}
		contents, readErr := os.ReadFile(path)
		if readErr != nil {
			err = fmt.Errorf("reading %s: %w", envVar+fileSuffix, readErr)
			return
		}
		err = fs.Set(f.Name, string(contents))
	})
	return err
}

func flagToEnvVarName(f *pflag.Flag) string {
	name := strings.NewReplacer("-", "_").Replace(strings.ToUpper(f.Name))
	return fmt.Sprintf("%s%s", EnvironmentVariablePrefix, name)
}
