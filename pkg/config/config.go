package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the coordinator configuration, loaded from the environment
// (optionally seeded from a .env file).
type Config struct {
	// DatabaseURL is the DSN of the MariaDB store. The store forces
	// parseTime on when opening the connection.
	DatabaseURL string

	// MTLSCertsPath holds machaonlocalca.cert, node0.cert and node0.key.
	MTLSCertsPath string

	// SSLCertsPath holds the REST TLS material
	// (machaonweb.com.crt, myserver.key).
	SSLCertsPath string

	// FrontendPath is the static file root served by the REST layer.
	FrontendPath string

	// LogDir receives the daily log files. Empty means stdout.
	LogDir string

	// MonitorPath is the root working directory holding PDBs_new,
	// DATA_PDBs_new_whole and DATA_PDBs_new_domain.
	MonitorPath string

	// OutputPath is the per-request result directory root.
	OutputPath string

	WebServerIP   string
	WebServerPort int

	RequestMonitoringInterval time.Duration
	JobMonitoringInterval     time.Duration
	NodeSyncInterval          time.Duration

	// CaptchaSecret is the server-held reCAPTCHA secret.
	CaptchaSecret string

	CORSURLs []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MTLSCertsPath: os.Getenv("MTLS_CERTS_PATH"),
		SSLCertsPath:  os.Getenv("SSL_CERTS_PATH"),
		FrontendPath:  os.Getenv("FRONTEND_PATH"),
		LogDir:        os.Getenv("LOG_DIR"),
		MonitorPath:   os.Getenv("MONITOR_PATH"),
		OutputPath:    os.Getenv("OUTPUT_PATH"),
		WebServerIP:   os.Getenv("WEB_SERVER_IP"),
		CaptchaSecret: os.Getenv("CAPTCHA_SECRET"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	port, err := intVar("WEB_SERVER_PORT", 443)
	if err != nil {
		return nil, err
	}
	cfg.WebServerPort = port

	if cfg.RequestMonitoringInterval, err = secondsVar("REQUEST_MONITORING_INTERVAL", 30); err != nil {
		return nil, err
	}
	if cfg.JobMonitoringInterval, err = secondsVar("JOB_MONITORING_INTERVAL", 30); err != nil {
		return nil, err
	}
	if cfg.NodeSyncInterval, err = secondsVar("NODE_SYNC_INTERVAL", 60); err != nil {
		return nil, err
	}

	for _, key := range []string{"CORS_URL1", "CORS_URL2"} {
		if v := os.Getenv(key); v != "" {
			cfg.CORSURLs = append(cfg.CORSURLs, v)
		}
	}

	return cfg, nil
}

func intVar(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func secondsVar(key string, fallback int) (time.Duration, error) {
	v, err := intVar(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}
