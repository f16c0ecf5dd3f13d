// Package appconf holds process-level configuration shared across the
// aggregation core: the runtime environment and the knobs that do not
// belong to any single feed.
package appconf

import "strings"

// Environment represents the runtime environment of the application.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFromString maps an environment name to its Environment value.
// Unrecognized names fall back to Development.
func EnvFromString(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Production:
		return "production"
	case Test:
		return "test"
	default:
		return "development"
	}
}

// Config is the application-level configuration, distinct from the per-feed
// configuration owned by internal/config.
type Config struct {
	Env     Environment
	Verbose bool
}
