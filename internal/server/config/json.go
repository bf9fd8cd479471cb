package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mailreminder/internal/flagx"
	"github.com/dmitrijs2005/mailreminder/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "1m" style
// strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr                string         `json:"http_address"`
	GRPCAddr                string         `json:"grpc_address"`
	DatabaseDSN             string         `json:"database_dsn"`
	VaultSecret             string         `json:"aes_secret_key"`
	SessionSecret           string         `json:"session_secret"`
	SessionValidityDuration timex.Duration `json:"session_validity"`
	SweepInterval           timex.Duration `json:"sweep_interval"`
	SMTPHost                string         `json:"smtp_host"`
	SMTPPort                int            `json:"smtp_port"`
	SMTPTimeout             timex.Duration `json:"smtp_timeout"`
	S3RootUser              string         `json:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket"`
	S3Region                string         `json:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
	LogBackend              string         `json:"log_backend"`
	Timezone                string         `json:"timezone"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file keep their current value. An unreadable or malformed file
// panics: the process must not start half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.VaultSecret, c.VaultSecret)
	setString(&config.SessionSecret, c.SessionSecret)
	if c.SessionValidityDuration.Duration > 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.SMTPTimeout.Duration > 0 {
		config.SMTPTimeout = c.SMTPTimeout.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.Timezone, c.Timezone)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
