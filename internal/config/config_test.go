package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider != defaultProvider {
		t.Errorf("Default Provider = %q, want %q", cfg.Provider, defaultProvider)
	}
	if cfg.APIKeyEnvVar != defaultAPIKeyEnvVar {
		t.Errorf("Default APIKeyEnvVar = %q, want %q", cfg.APIKeyEnvVar, defaultAPIKeyEnvVar)
	}
	if !cfg.ConfirmDangerous {
		t.Error("Default ConfirmDangerous = false, want true")
	}
	if !cfg.LogExecutions {
		t.Error("Default LogExecutions = false, want true")
	}
	if cfg.GitTimeoutSeconds != 30 {
		t.Errorf("Default GitTimeoutSeconds = %d, want 30", cfg.GitTimeoutSeconds)
	}
}

func TestMerge_OverlaysNonZeroFields(t *testing.T) {
	dst := Default()
	src := &Config{Model: "claude-3-opus", GitTimeoutSeconds: 60}

	merge(dst, src)

	if dst.Model != "claude-3-opus" {
		t.Errorf("Model = %q, want claude-3-opus", dst.Model)
	}
	if dst.GitTimeoutSeconds != 60 {
		t.Errorf("GitTimeoutSeconds = %d, want 60", dst.GitTimeoutSeconds)
	}
	if dst.Provider != defaultProvider {
		t.Errorf("Provider = %q, unmerged field should keep default", dst.Provider)
	}
}

func TestMerge_PreservesBooleansAcrossZeroValue(t *testing.T) {
	dst := Default()
	src := &Config{}

	merge(dst, src)

	if !dst.ConfirmDangerous {
		t.Error("ConfirmDangerous flipped to false by a merge with an empty source")
	}
	if !dst.LogExecutions {
		t.Error("LogExecutions flipped to false by a merge with an empty source")
	}
}

func TestResolve_ConfirmDangerousFloor(t *testing.T) {
	cfg := &Config{ConfirmDangerous: false}
	resolved := Resolve(cfg)

	if !resolved.ConfirmDangerous {
		t.Error("Resolve must not allow ConfirmDangerous=false to pass through")
	}
}

func TestResolve_EnvOverridesInlineAPIKey(t *testing.T) {
	t.Setenv("GITALKY_TEST_KEY", "from-env")
	cfg := &Config{APIKeyEnvVar: "GITALKY_TEST_KEY", APIKey: "from-file"}

	resolved := Resolve(cfg)
	if resolved.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env value to win", resolved.APIKey)
	}
}

func TestResolve_FallsBackToInlineKeyWhenEnvUnset(t *testing.T) {
	cfg := &Config{APIKeyEnvVar: "GITALKY_TEST_KEY_UNSET", APIKey: "from-file"}

	resolved := Resolve(cfg)
	if resolved.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want inline fallback", resolved.APIKey)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != defaultProvider {
		t.Errorf("Provider = %q, want default", cfg.Provider)
	}
}

func TestLoad_ReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, configDirName), 0700); err != nil {
		t.Fatal(err)
	}
	body := "model = \"claude-3-opus\"\ngit_timeout_seconds = 45\n"
	if err := os.WriteFile(filepath.Join(dir, configDirName, configFileName), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "claude-3-opus" {
		t.Errorf("Model = %q, want claude-3-opus", cfg.Model)
	}
	if cfg.GitTimeoutSeconds != 45 {
		t.Errorf("GitTimeoutSeconds = %d, want 45", cfg.GitTimeoutSeconds)
	}
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, configDirName), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configDirName, configFileName), []byte("not valid toml [["), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestWrite_ThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := Default()
	cfg.Model = "claude-3-haiku"
	if err := Write(cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := os.Stat(Path())
	if err != nil {
		t.Fatalf("Stat config file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "claude-3-haiku" {
		t.Errorf("Model = %q, want claude-3-haiku", loaded.Model)
	}
}

func TestDir_HonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	if got := Dir(); got != filepath.Join("/tmp/xdg-test", configDirName) {
		t.Errorf("Dir() = %q, want under XDG_CONFIG_HOME", got)
	}
}
