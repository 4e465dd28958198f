package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		CatalogTTL     string `yaml:"catalog_ttl"`
		LeaderboardTTL string `yaml:"leaderboard_ttl"`
	} `yaml:"cache"`
	Quiz struct {
		DefaultQuestions int     `yaml:"default_questions"`
		RaiseStreak      int     `yaml:"raise_streak"`
		PointsEasy       int     `yaml:"points_easy"`
		PointsMedium     int     `yaml:"points_medium"`
		PointsHard       int     `yaml:"points_hard"`
		HistoryFreshness string  `yaml:"history_freshness"`
		SessionMaxAge    string  `yaml:"session_max_age"`
		TimeBonusCeiling int     `yaml:"time_bonus_ceiling"`
		TimeBonusFastAvg float64 `yaml:"time_bonus_fast_avg"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
