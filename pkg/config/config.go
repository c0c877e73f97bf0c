// Package config loads the forge's environment-driven configuration,
// grounded on the upstream config.Load() convention: read an env var,
// fall back to a documented default, never fail on a missing one.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the forge's runtime configuration.
type Config struct {
	LedgerDBPath     string
	RegistryPath     string
	ArtifactDir      string
	VaultDir         string
	LogLevel         string
	LLMGatewayURL    string
	LLMGatewayAPIKey string
	LLMGatewayModel  string
	PolicyBundlePath string
	ForbiddenImports []string
	BuildTimeout     time.Duration
	UseWasmBuilder   bool
	WasmModulePath   string
	OTelEnabled      bool
}

// Load reads configuration from the environment, applying the same
// defaults a local single-writer deployment would want out of the box.
func Load() *Config {
	return &Config{
		LedgerDBPath:     getEnv("FORGE_LEDGER_DB", "./forge.db"),
		RegistryPath:     getEnv("FORGE_REGISTRY_PATH", "./registry.yaml"),
		ArtifactDir:      getEnv("FORGE_ARTIFACT_DIR", "./artifacts"),
		VaultDir:         getEnv("FORGE_VAULT_DIR", "./vault"),
		LogLevel:         getEnv("FORGE_LOG_LEVEL", "INFO"),
		LLMGatewayURL:    getEnv("FORGE_LLM_GATEWAY_URL", "http://localhost:8000/v1"),
		LLMGatewayAPIKey: getEnv("FORGE_LLM_GATEWAY_API_KEY", "dummy-key"),
		LLMGatewayModel:  getEnv("FORGE_LLM_GATEWAY_MODEL", "gpt-oss-20b"),
		PolicyBundlePath: getEnv("FORGE_POLICY_BUNDLE", ""),
		ForbiddenImports: splitNonEmpty(getEnv("FORGE_FORBIDDEN_IMPORTS", "")),
		BuildTimeout:     getDuration("FORGE_BUILD_TIMEOUT", 120*time.Second),
		UseWasmBuilder:   getBool("FORGE_BUILDER_WASM", false),
		WasmModulePath:   getEnv("FORGE_WASM_MODULE_PATH", ""),
		OTelEnabled:      getBool("FORGE_OTEL_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
