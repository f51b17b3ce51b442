package main

import (
	"fmt"
	"os"
	"strings"

	"subalign/internal/backends"
	"subalign/internal/config"
	"subalign/internal/correspond"
	"subalign/internal/language"
	"subalign/internal/subtitle"
)

// loadCueFile reads and parses one SRT file. The role names the file in
// error messages ("input", "reference").
func loadCueFile(path, role string) ([]subtitle.Cue, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", fmt.Errorf("%s file path is required", role)
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s path: %w", role, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%s file %q not found", role, expanded)
		}
		return nil, "", fmt.Errorf("stat %s file: %w", role, err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s path %q is a directory", role, expanded)
	}
	cues, err := subtitle.ParseSRTFile(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s file: %w", role, err)
	}
	return cues, expanded, nil
}

// languageLabel maps a CLI language code to the display name backends see
// in prompts. Empty input stays empty rather than becoming "Unknown".
func languageLabel(code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	return language.DisplayName(code)
}

// resolveBackendName applies the flag override over the configured default.
func resolveBackendName(cfg *config.Config, flagValue string) string {
	name := strings.ToLower(strings.TrimSpace(flagValue))
	if name == "" && cfg != nil {
		name = cfg.Backends.Default
	}
	return name
}

// buildBackendClient resolves connection settings for the named backend and
// constructs its client, applying model and API key flag overrides.
func buildBackendClient(cfg *config.Config, name, model, apiKey string) (backends.Client, error) {
	resolved, err := cfg.ResolveBackend(name)
	if err != nil {
		return nil, err
	}
	if model = strings.TrimSpace(model); model != "" {
		resolved.Model = model
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		resolved.APIKey = apiKey
	}
	if resolved.APIKey == "" {
		hint := ""
		if envVar := config.BackendEnvVar(resolved.Name); envVar != "" {
			hint = fmt.Sprintf(" (set %s or backends.%s.api_key)", envVar, resolved.Name)
		}
		return nil, fmt.Errorf("backend %s: API key missing%s", resolved.Name, hint)
	}
	return backends.New(resolved)
}

// buildScorer constructs the correspondence scorer for an alignment run:
// the offline lexical scorer, or an AI scorer over the selected backend.
// The second return is a short label for the run report.
func buildScorer(cfg *config.Config, backendFlag, model, apiKey, srcLang, refLang string, reference []subtitle.Cue) (correspond.Scorer, string, error) {
	name := resolveBackendName(cfg, backendFlag)
	if name == config.LexicalBackend {
		return correspond.NewLexicalScorer(reference), config.LexicalBackend, nil
	}
	client, err := buildBackendClient(cfg, name, model, apiKey)
	if err != nil {
		return nil, "", err
	}
	scorer := correspond.NewAIScorer(client, languageLabel(srcLang), languageLabel(refLang))
	return scorer, fmt.Sprintf("%s/%s", client.Name(), client.Model()), nil
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
