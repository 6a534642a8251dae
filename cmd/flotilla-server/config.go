package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/flotilla-io/flotilla/internal/api/http"
	"github.com/flotilla-io/flotilla/internal/auth"
	"github.com/flotilla-io/flotilla/internal/db"
)

type Config struct {
	Log      LogConfig
	Http     http.Config
	Database db.Config
	Auth     auth.Config
	Seed     db.SeedConfig
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/flotilla-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("auth.signing_key", "AUTH_SIGNING_KEY")
	_ = viper.BindEnv("seed.admin_password", "SEED_ADMIN_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)
}
