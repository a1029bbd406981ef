package secrets

import (
	"strings"
	"testing"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := vars[name]
		return value, ok
	}
}

func TestResolvePlainText(t *testing.T) {
	svc := NewResolver()

	secret, err := svc.Resolve(&Ref{Type: "plain_text", Key: "secret123"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if secret != "secret123" {
		t.Fatalf("expected secret123, got %s", secret)
	}
}

func TestResolveEnv(t *testing.T) {
	svc := &Resolver{lookupEnv: fakeEnv(map[string]string{"FEED_PASSWORD": "env-secret"})}

	secret, err := svc.Resolve(&Ref{Type: "env", Key: "FEED_PASSWORD"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if secret != "env-secret" {
		t.Fatalf("expected env-secret, got %s", secret)
	}
}

func TestResolveEnvMissing(t *testing.T) {
	svc := &Resolver{lookupEnv: fakeEnv(nil)}

	_, err := svc.Resolve(&Ref{Type: "env", Key: "FEED_PASSWORD"})
	if err == nil {
		t.Fatalf("expected error for unset env variable")
	}
	if !strings.Contains(err.Error(), "FEED_PASSWORD") {
		t.Fatalf("expected error to name the variable, got %v", err)
	}
}

func TestResolveShellSuccess(t *testing.T) {
	svc := NewResolver()

	secret, err := svc.Resolve(&Ref{Type: "shell", Key: "echo shell-secret"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if secret != "shell-secret" {
		t.Fatalf("expected shell-secret, got %s", secret)
	}
}

func TestResolveShellFailure(t *testing.T) {
	svc := NewResolver()

	_, err := svc.Resolve(&Ref{Type: "shell", Key: "exit 1"})
	if err == nil {
		t.Fatalf("expected error for failing shell command")
	}
}

func TestResolveUnsupportedType(t *testing.T) {
	svc := NewResolver()

	_, err := svc.Resolve(&Ref{Type: "keychain", Key: "account"})
	if err == nil {
		t.Fatalf("expected error for unsupported provider type")
	}
}
