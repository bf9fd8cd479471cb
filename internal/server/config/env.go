package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays values from environment variables. A dotenv file named
// by -env is loaded first (and must exist); otherwise ./.env is loaded when
// present. Variables already set in the environment are never overwritten
// by the file.
//
// Durations (SESSION_VALIDITY, SWEEP_INTERVAL, SMTP_TIMEOUT) use
// time.ParseDuration syntax. Unparseable numbers and durations panic.
func parseEnv(config *Config) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	envString(&config.HTTPAddr, "HTTP_ADDRESS")
	envString(&config.GRPCAddr, "GRPC_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.VaultSecret, "AES_SECRET_KEY")
	envString(&config.SessionSecret, "SESSION_SECRET")
	envDuration(&config.SessionValidityDuration, "SESSION_VALIDITY")
	envDuration(&config.SweepInterval, "SWEEP_INTERVAL")
	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envDuration(&config.SMTPTimeout, "SMTP_TIMEOUT")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.LogBackend, "LOG_BACKEND")
	envString(&config.Timezone, "TIMEZONE")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
