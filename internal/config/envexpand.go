package config

import "os"

// ExpandEnv expands environment variables in YAML content using the
// standard library's shell-style ${VAR} / $VAR syntax. Missing variables
// expand to the empty string; validation is responsible for catching any
// required field left empty by that.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
