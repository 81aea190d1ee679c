package shell

import (
	"os"
	"regexp"
	"strings"
)

var envRe = regexp.MustCompile(`\${([^}{]+)}`)

// ReplaceEnvVars expands ${VAR} and ${VAR:default} in config text.
// Unset variables without a default are left as-is.
func ReplaceEnvVars(text string) string {
	return envRe.ReplaceAllStringFunc(text, func(match string) string {
		key, def, defOK := strings.Cut(match[2:len(match)-1], ":")

		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		if defOK {
			return def
		}
		return match
	})
}
