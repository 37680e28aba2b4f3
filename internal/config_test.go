package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStoreConfig_DirRequired(t *testing.T) {
	cfg := StoreConfig{Dir: "", SQLitePath: "./x.db"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty dir should fail validation")
	}
}

func TestStoreConfig_SQLiteOptional(t *testing.T) {
	cfg := StoreConfig{Dir: "./records"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty sqlite path should pass: %v", err)
	}
}

func TestDraftConfig_Delay(t *testing.T) {
	cfg := DraftConfig{AutosaveDelayMS: 500}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid delay should pass: %v", err)
	}
	if cfg.AutosaveDelay() != 500*time.Millisecond {
		t.Errorf("delay = %v", cfg.AutosaveDelay())
	}

	cfg.AutosaveDelayMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero delay should fail validation")
	}
}

func TestRemoteConfig_BaseURL(t *testing.T) {
	cfg := RemoteConfig{BaseURL: "ftp://nope", TimeoutSeconds: 15}
	if err := cfg.Validate(); err == nil {
		t.Fatal("non-http base url should fail validation")
	}

	cfg.BaseURL = "https://api.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("https base url should pass: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
