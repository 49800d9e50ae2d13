package config

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

func MustLoad() *Config {
	op := "config.MustLoad()"
	log := slog.With(
		slog.String("op", op),
	)
	defaultConfigPath := "config.yml"

	configPath := fetchConfigPath()

	if configPath == "" {
		log.Warn("config path is empty. Loading default config path",
			slog.String("defaultConfigPath", defaultConfigPath))
		configPath = defaultConfigPath
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	if err := cfg.Schedule.validate(); err != nil {
		log.Fatalf("invalid schedule config: %s", err.Error())
	}

	return &cfg
}

func (sc ScheduleConfig) validate() error {
	if sc.MorningHour < 0 || sc.MorningHour > 23 || sc.MorningMinute < 0 || sc.MorningMinute > 59 {
		return fmt.Errorf("morning time %02d:%02d out of range", sc.MorningHour, sc.MorningMinute)
	}
	if sc.EveningStartHour < 0 || sc.EveningEndHour > 24 || sc.EveningEndHour <= sc.EveningStartHour {
		return fmt.Errorf("evening window %d-%d is empty", sc.EveningStartHour, sc.EveningEndHour)
	}
	return nil
}

func fetchConfigPath() string {
	op := "config.fetchConfigPath()"
	log := slog.With(
		slog.String("op", op),
	)

	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res != "" {
		log.Info("load config path from command line.",
			slog.String("path", res))
		return res
	}
	res = fmt.Sprintf("%s%s",
		os.Getenv("CONFIG_FILEPATH"),
		os.Getenv("CONFIG_FILENAME"))
	log.Info(
		"load config path from env",
		slog.String("CONFIG_FILEPATH", os.Getenv("CONFIG_FILEPATH")),
		slog.String("CONFIG_FILENAME", os.Getenv("CONFIG_FILENAME")),
	)
	return res
}
