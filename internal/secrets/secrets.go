// Package secrets resolves credential references for outbound feed
// clients. A reference names a provider and a provider-specific key, so
// deployments can keep passwords out of config files.
package secrets

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Ref selects how a secret is resolved.
type Ref struct {
	Type string `yaml:"type" json:"type"` // plain_text, env, shell
	Key  string `yaml:"key" json:"key"`   // literal value, variable name, or command
}

// Resolver resolves secret references.
type Resolver struct {
	lookupEnv func(string) (string, bool)
}

func NewResolver() *Resolver {
	return &Resolver{lookupEnv: os.LookupEnv}
}

// Resolve returns the secret a reference points at.
func (r *Resolver) Resolve(ref *Ref) (string, error) {
	if ref == nil {
		return "", fmt.Errorf("secret ref is nil")
	}

	switch ref.Type {
	case "plain_text":
		if ref.Key == "" {
			return "", fmt.Errorf("secret key cannot be empty")
		}
		return ref.Key, nil
	case "env":
		return r.resolveEnv(ref.Key)
	case "shell":
		return r.resolveShell(ref.Key)
	default:
		return "", fmt.Errorf("unsupported secret provider type: %s", ref.Type)
	}
}

func (r *Resolver) resolveEnv(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("env variable name cannot be empty")
	}

	value, ok := r.lookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("env variable %s is not set", name)
	}
	return strings.TrimSpace(value), nil
}

func (r *Resolver) resolveShell(command string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("shell secret command cannot be empty")
	}

	cmd := exec.Command("/bin/sh", "-c", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("shell secret command failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	return strings.TrimSpace(string(output)), nil
}
