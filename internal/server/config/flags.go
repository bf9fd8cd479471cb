package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-r string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-k string   credential vault secret
//	-s string   session token secret
//	-t int      session validity, minutes
//	-i int      sweep interval, seconds
//	-m string   SMTP host
//	-n int      SMTP port
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   log backend (slog|zerolog)
//	-z string   timezone for form datetimes
//
// Only these flags are taken from os.Args, so subcommands and flags owned by
// other layers (-c, -env) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-r", "-d", "-k", "-s", "-t", "-i", "-m", "-n",
		"-u", "-p", "-b", "-g", "-e", "-l", "-z",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "r", config.GRPCAddr, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.VaultSecret, "k", config.VaultSecret, "credential vault secret")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")
	sweepInterval := fs.Int("i", int(config.SweepInterval.Seconds()), "sweep interval (in seconds)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "n", config.SMTPPort, "SMTP port")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 export bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zerolog)")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "timezone for scheduled times")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.SweepInterval = time.Duration(*sweepInterval) * time.Second
}
