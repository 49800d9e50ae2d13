package config

type Config struct {
	Env            string           `yaml:"env" env-default:"local"`
	DBConfig       DBConfig         `yaml:"db" env-required:"true"`
	BotConfig      BotConfig        `yaml:"bot" env-required:"true"`
	Schedule       ScheduleConfig   `yaml:"schedule"`
	OpenRouter     OpenRouterConfig `yaml:"openrouter"`
	ConfigFilePath string           `yaml:"configFilePath" env:"CONFIG_FILEPATH" env-default:""`
	ConfigFileName string           `yaml:"configFileName" env:"CONFIG_FILENAME" env-default:""`
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"bun_of_the_day"`
}

type BotConfig struct {
	AdminID       int64  `yaml:"admin_id" env:"ADMIN_ID" env-required:"true"`
	TgbotApiToken string `yaml:"tgbot_apitoken" env:"TGBOT_APITOKEN" env-required:"true"`
}

type ScheduleConfig struct {
	Timezone         string `yaml:"timezone" env-default:"Europe/Moscow"`
	MorningHour      int    `yaml:"morning_hour" env-default:"9"`
	MorningMinute    int    `yaml:"morning_minute" env-default:"0"`
	EveningStartHour int    `yaml:"evening_start_hour" env-default:"18"`
	EveningEndHour   int    `yaml:"evening_end_hour" env-default:"22"`
	SendDelayMs      int    `yaml:"send_delay_ms" env-default:"500"`
}

type OpenRouterConfig struct {
	ApiToken string `yaml:"api_token" env:"OPENROUTER_APITOKEN" env-default:""`
	Model    string `yaml:"model" env-default:"openai/gpt-4o-mini"`
}
