package config

import "github.com/caarlos0/env/v11"

// EnvPrefix is prepended to every variable name in the Config env tags.
const EnvPrefix = "MAILAUTH_"

// parseEnv overrides fields whose MAILAUTH_* variable is set. Unset
// variables leave the current value in place.
func parseEnv(config *Config) error {
	return env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix})
}
