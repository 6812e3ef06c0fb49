package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoShops = errors.New("no shops configured")

type ShopConfig struct {
	ID       string   `yaml:"id"`
	TimeZone string   `yaml:"timeZone"`
	Cookies  []string `yaml:"cookies"`
}

// LocationsConfig is the structured part of the configuration that does not
// fit in environment variables.
type LocationsConfig struct {
	Shops            []ShopConfig `yaml:"shops"`
	VisiblePlayers   []string     `yaml:"visiblePlayers"`
	TFTIPlayers      []string     `yaml:"tftiPlayers"`
	AdminDiscordTags []string     `yaml:"adminDiscordTags"`
	AlertChannel     string       `yaml:"alertChannel"`
}

func LoadLocations(path string) (LocationsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return LocationsConfig{}, fmt.Errorf("read locations config %q: %w", path, err)
	}
	return ParseLocations(raw)
}

func ParseLocations(raw []byte) (LocationsConfig, error) {
	var cfg LocationsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return LocationsConfig{}, fmt.Errorf("parse locations config: %w", err)
	}
	if len(cfg.Shops) == 0 {
		return LocationsConfig{}, ErrNoShops
	}
	seen := map[string]bool{}
	for i := range cfg.Shops {
		shop := &cfg.Shops[i]
		shop.ID = strings.TrimSpace(shop.ID)
		shop.TimeZone = strings.TrimSpace(shop.TimeZone)
		if shop.ID == "" {
			return LocationsConfig{}, fmt.Errorf("shop %d: missing id", i)
		}
		if seen[shop.ID] {
			return LocationsConfig{}, fmt.Errorf("shop %s: duplicate id", shop.ID)
		}
		seen[shop.ID] = true
		if shop.TimeZone == "" {
			return LocationsConfig{}, fmt.Errorf("shop %s: missing timeZone", shop.ID)
		}
		cookies := shop.Cookies[:0]
		for _, c := range shop.Cookies {
			if c = strings.TrimSpace(c); c != "" {
				cookies = append(cookies, c)
			}
		}
		shop.Cookies = cookies
	}
	cfg.VisiblePlayers = trimAll(cfg.VisiblePlayers)
	cfg.TFTIPlayers = trimAll(cfg.TFTIPlayers)
	cfg.AdminDiscordTags = trimAll(cfg.AdminDiscordTags)
	cfg.AlertChannel = strings.TrimSpace(cfg.AlertChannel)
	return cfg, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
