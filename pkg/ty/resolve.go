package ty

import (
	"os"
	"regexp"
	"strings"
)

var varRe = regexp.MustCompile(`\$(\{([a-zA-Z_][a-zA-Z0-9_]*)(:-(.*?)?)?\}|\$([a-zA-Z_][a-zA-Z0-9_]*))`)

// resolve expands ${VAR}, $$VAR and ${VAR:-default} references from vars
// first and the process environment second.
func resolve(input string, vars map[string]string) string {
	return varRe.ReplaceAllStringFunc(input, func(v string) string {
		parts := strings.SplitN(v, ":-", 2)
		name := strings.Trim(parts[0], "${}")
		name = strings.Trim(name, "$")

		if val, ok := vars[name]; ok {
			return val
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if len(parts) == 2 {
			return strings.TrimSuffix(parts[1], "}")
		}
		return v
	})
}

// ResolveVariables expands environment references in every value of the map.
func (ms MS) ResolveVariables() MS {
	out := MS{}
	for k, v := range ms {
		out[k] = resolve(v, nil)
	}
	return out
}

// ResolveString expands environment references in a single value.
func ResolveString(s string) string {
	return resolve(s, nil)
}
