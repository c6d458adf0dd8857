// Package resolve turns named targets into base URLs at startup.
// Resolution happens once per target before any traffic starts, and
// any failure is fatal for the whole run.
package resolve

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// EnvPrefix is the prefix for per-target URL overrides. The target
// name is uppercased and non-alphanumeric runes map to underscores,
// so target "east-1" reads FOOTFALL_TARGET_EAST_1.
const EnvPrefix = "FOOTFALL_TARGET_"

// Mode selects which sources a resolver consults for targets that
// carry no explicit URL.
type Mode string

const (
	ModeAuto    Mode = "auto"    // environment first, then kubectl
	ModeStatic  Mode = "static"  // explicit URLs only
	ModeEnv     Mode = "env"     // environment variables only
	ModeKubectl Mode = "kubectl" // kubectl discovery only
)

// ParseMode validates a resolver mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeStatic, ModeEnv, ModeKubectl:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown resolver mode %q (valid: auto, static, env, kubectl)", s)
	}
}

// Spec is one target to resolve.
type Spec struct {
	Name    string
	URL     string // explicit base URL, wins over every other source
	Context string // kubectl context override
}

// Options configure a Resolver.
type Options struct {
	Mode    Mode
	Kubectl KubectlOptions

	LookupEnv func(string) (string, bool) // environment override for tests
	Runner    CommandRunner               // exec override for tests
}

// Resolver maps target specs to base URLs.
type Resolver struct {
	opt Options
}

func New(opt Options) *Resolver {
	if opt.Mode == "" {
		opt.Mode = ModeAuto
	}
	opt.Kubectl.normalize()
	if opt.LookupEnv == nil {
		opt.LookupEnv = os.LookupEnv
	}
	if opt.Runner == nil {
		opt.Runner = runCommand
	}
	return &Resolver{opt: opt}
}

// Resolve returns the base URL for one target. An explicit URL on the
// spec is validated and used as-is; otherwise the configured mode
// decides where the URL comes from.
func (r *Resolver) Resolve(ctx context.Context, spec Spec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("target name cannot be empty")
	}
	if spec.URL != "" {
		u, err := NormalizeURL(spec.URL)
		if err != nil {
			return "", fmt.Errorf("target %s: %w", spec.Name, err)
		}
		return u, nil
	}

	switch r.opt.Mode {
	case ModeStatic:
		return "", fmt.Errorf("target %s: no URL configured and resolver is static", spec.Name)
	case ModeEnv:
		raw, ok := r.opt.LookupEnv(EnvKey(spec.Name))
		if !ok {
			return "", fmt.Errorf("target %s: %s is not set", spec.Name, EnvKey(spec.Name))
		}
		u, err := NormalizeURL(raw)
		if err != nil {
			return "", fmt.Errorf("target %s: %s: %w", spec.Name, EnvKey(spec.Name), err)
		}
		return u, nil
	case ModeKubectl:
		return r.fromKubectl(ctx, spec)
	default:
		if raw, ok := r.opt.LookupEnv(EnvKey(spec.Name)); ok {
			u, err := NormalizeURL(raw)
			if err != nil {
				return "", fmt.Errorf("target %s: %s: %w", spec.Name, EnvKey(spec.Name), err)
			}
			return u, nil
		}
		return r.fromKubectl(ctx, spec)
	}
}

// EnvKey returns the environment variable consulted for a target name.
func EnvKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return EnvPrefix + b.String()
}

// NormalizeURL validates an explicit target URL and trims any trailing
// slash so path joining stays predictable.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}
