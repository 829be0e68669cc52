// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cv-verify/internal/secrets"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// optionalConfigKeys are omitted from the marshaled defaults because they are
// empty, but must still be known to viper so environment overrides apply.
var optionalConfigKeys = []string{
	"document.ocr_image",
	"classifier.url",
	"extraction.api_key",
	"extraction.base_url",
	"sources.serpapi_key",
	"sources.scopus_api_key",
	"sources.openalex_email",
}

// providerSecrets maps each provider to its key file under .secrets/.
var providerSecrets = map[types.Provider]string{
	types.ProviderClaude:   secrets.AnthropicAPIKey,
	types.ProviderOpenAI:   secrets.OpenAIAPIKey,
	types.ProviderDeepSeek: secrets.DeepSeekAPIKey,
	types.ProviderGemini:   secrets.GeminiAPIKey,
}

// defaultSettings flattens DefaultVerifyConfig into dotted viper keys.
func defaultSettings() map[string]any {
	data, err := yaml.Marshal(types.DefaultVerifyConfig())
	if err != nil {
		panic(fmt.Sprintf("marshaling default config: %v", err))
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		panic(fmt.Sprintf("parsing default config: %v", err))
	}

	flat := make(map[string]any)
	flatten("", tree, flat)
	for _, k := range optionalConfigKeys {
		if _, ok := flat[k]; !ok {
			flat[k] = ""
		}
	}
	return flat
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

func setConfigDefaults() {
	for k, v := range defaultSettings() {
		viper.SetDefault(k, v)
	}
}

// loadVerifyConfig reads every known key through viper, so config file
// values and CV_VERIFY_* environment variables both apply, and decodes the
// result into a VerifyConfig with defaults filled in.
func loadVerifyConfig() (types.VerifyConfig, error) {
	tree := make(map[string]any)
	for key, def := range defaultSettings() {
		var v any
		switch def.(type) {
		case int, float64:
			v = viper.GetFloat64(key)
		case bool:
			v = viper.GetBool(key)
		default:
			v = viper.GetString(key)
		}
		setPath(tree, strings.Split(key, "."), v)
	}

	var cfg types.VerifyConfig
	data, err := yaml.Marshal(tree)
	if err != nil {
		return cfg, fmt.Errorf("marshaling config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func setPath(tree map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		sub, ok := tree[p].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			tree[p] = sub
		}
		tree = sub
	}
	tree[path[len(path)-1]] = v
}

// secretValue returns current when set, then the .secrets/ file named key,
// then the matching environment variable (e.g. SERPAPI_API_KEY).
func secretValue(current, key string) string {
	if current != "" {
		return current
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return os.Getenv(secrets.EnvName(key))
}

// fillSecrets resolves API keys that the config file left empty.
func fillSecrets(cfg *types.VerifyConfig) {
	if key, ok := providerSecrets[cfg.Extraction.Provider]; ok {
		cfg.Extraction.APIKey = secretValue(cfg.Extraction.APIKey, key)
	}
	cfg.Sources.SerpAPIKey = secretValue(cfg.Sources.SerpAPIKey, secrets.SerpAPIKey)
	cfg.Sources.ScopusAPIKey = secretValue(cfg.Sources.ScopusAPIKey, secrets.ScopusAPIKey)
	cfg.Sources.OpenAlexEmail = secretValue(cfg.Sources.OpenAlexEmail, secrets.OpenAlexEmail)
}
