package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("MATCHER_TEST_KEY", "from-env")

	got, err := Load(Source{Name: "api key", File: path, Env: "MATCHER_TEST_KEY", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadFallsBackToEnvThenValue(t *testing.T) {
	t.Setenv("MATCHER_TEST_KEY", " from-env ")

	got, err := Load(Source{Env: "MATCHER_TEST_KEY", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env secret, got %q", got)
	}

	t.Setenv("MATCHER_TEST_KEY", "")
	got, err = Load(Source{Env: "MATCHER_TEST_KEY", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	cases := []struct {
		name string
		src  Source
		want string
	}{
		{name: "missing file", src: Source{Name: "dsn", File: filepath.Join(dir, "nope")}, want: "reading dsn from file"},
		{name: "empty file", src: Source{Name: "dsn", File: empty}, want: "is empty"},
		{name: "nothing configured", src: Source{Name: "dsn"}, want: "dsn is not configured"},
		{name: "env hint", src: Source{Name: "key", Env: "MATCHER_UNSET_VAR"}, want: "set MATCHER_UNSET_VAR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}
