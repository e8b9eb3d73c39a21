package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"gomokubot/engine"
)

const (
	championConfigFile   = "champion_config.json"
	challengerConfigFile = "challenger_config.json"
)

// baseTiers resumes from the last champion when one was saved, otherwise
// starts from the configured engine tiers.
func (t *trainer) baseTiers() engine.ScoreTiers {
	config, err := t.readConfigFile(championConfigFile)
	if err == nil {
		t.logger.Info().Interface("tiers", config.Tiers).Msg("resuming from saved champion")
		return config.Tiers
	}
	return t.baseConfig.Tiers
}

// persistTierPair writes full engine configs so the champion file can be
// handed straight to ENGINE_CONFIG_PATH.
func (t *trainer) persistTierPair(champion, challenger engine.ScoreTiers) error {
	if err := t.writeConfigFile(championConfigFile, champion); err != nil {
		return err
	}
	return t.writeConfigFile(challengerConfigFile, challenger)
}

func (t *trainer) writeConfigFile(name string, tiers engine.ScoreTiers) error {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return err
	}
	config := t.baseConfig
	config.Tiers = tiers
	raw, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	path := filepath.Join(t.outputDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (t *trainer) readConfigFile(name string) (engine.Config, error) {
	return engine.LoadConfigFile(filepath.Join(t.outputDir, name))
}

// pushChampion applies the tiers to a running backend. It is a no-op when
// BACKEND_URL is unset.
func (t *trainer) pushChampion(ctx context.Context, tiers engine.ScoreTiers) error {
	if t.backendURL == "" {
		return nil
	}
	return t.postJSON(ctx, "/api/config", map[string]any{"tiers": tiers})
}

func (t *trainer) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.backendURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("POST %s -> %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}
