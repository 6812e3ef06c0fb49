package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Bot       BotConfig
	Server    ServerConfig
	Notify    NotifyConfig
	Locations LocationsConfig
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func LoadApp() (AppConfig, error) {
	botCfg, err := LoadBot()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	notifyCfg, err := LoadNotify()
	if err != nil {
		return AppConfig{}, err
	}
	locCfg, err := LoadLocations(botCfg.LocationsPath)
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Bot:       botCfg,
		Server:    serverCfg,
		Notify:    notifyCfg,
		Locations: locCfg,
	}, nil
}
