package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/marcwhitt/confab/pkg/logging"
	"github.com/marcwhitt/confab/pkg/server"
	"github.com/marcwhitt/confab/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (flags override file values)")
	showVersion := flag.Bool("version", false, "Print version and exit")

	// Flag defaults mirror the config defaults; explicit flags win over
	// the config file, so register them after parsing the file below.
	var overrides server.Config
	flag.StringVar(&overrides.ListenAddr, "listen", "", "TCP bind address")
	flag.StringVar(&overrides.WSAddr, "ws", "", "HTTP bind address for the WebSocket endpoint (empty to disable)")
	flag.StringVar(&overrides.MetricsAddr, "metrics", "", "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.StringVar(&overrides.UsersFile, "users", "", "Credentials file of username:password lines")
	flag.StringVar(&overrides.UsersDB, "users-db", "", "SQLite user database (takes precedence over -users)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: "+logging.LevelNames())
	flag.StringVar(&overrides.LogFormat, "log-format", "", "Log format: text or json")
	flag.Parse()

	if *showVersion {
		fmt.Println("confab-server", version.Full())
		return
	}

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := server.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	applyOverrides(&cfg, overrides)

	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	slog.Info("starting confab-server", "version", version.String())

	creds, err := cfg.OpenCredentials()
	if err != nil {
		slog.Error("load credentials", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, server.Dependencies{Creds: creds})
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// applyOverrides copies non-empty flag values over the loaded config.
func applyOverrides(cfg *server.Config, o server.Config) {
	if o.ListenAddr != "" {
		cfg.ListenAddr = o.ListenAddr
	}
	if o.WSAddr != "" {
		cfg.WSAddr = o.WSAddr
	}
	if o.MetricsAddr != "" {
		cfg.MetricsAddr = o.MetricsAddr
	}
	if o.UsersFile != "" {
		cfg.UsersFile = o.UsersFile
	}
	if o.UsersDB != "" {
		cfg.UsersDB = o.UsersDB
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
}
