package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Tickets   TicketConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DB_DSN"`
	SQLitePath   string        `env:"DB_SQLITE_PATH" envDefault:"file:checkin.db?cache=shared&_pragma=busy_timeout(5000)"`
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	Username     string        `env:"DB_USERNAME" envDefault:"checkin"`
	Password     string        `env:"DB_PASSWORD" envDefault:"checkin"`
	Name         string        `env:"DB_NAME" envDefault:"checkin"`
	SSLMode      string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" envDefault:"5m"`
	Seed         bool          `env:"DB_SEED" envDefault:"false"`
}

// PostgresDSN returns DSN when set, otherwise builds one from the discrete fields.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (d DatabaseConfig) IsPostgres() bool {
	return strings.EqualFold(d.Driver, "postgres")
}

type RedisConfig struct {
	// Addr empty means locks stay in process.
	Addr       string        `env:"REDIS_ADDR"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL    time.Duration `env:"REDIS_LOCK_TTL" envDefault:"10s"`
	LockWait   time.Duration `env:"REDIS_LOCK_WAIT" envDefault:"5s"`
	LockPrefix string        `env:"REDIS_LOCK_PREFIX" envDefault:"checkin:lock:"`
}

type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"ms-checkin"`
	Topics  TopicConfig
}

type TopicConfig struct {
	TicketIssued         string `env:"KAFKA_TOPIC_TICKET_ISSUED" envDefault:"ticket.issued"`
	TicketSent           string `env:"KAFKA_TOPIC_TICKET_SENT" envDefault:"ticket.sent"`
	CheckinConfirmed     string `env:"KAFKA_TOPIC_CHECKIN_CONFIRMED" envDefault:"checkin.confirmed"`
	ParticipantsImported string `env:"KAFKA_TOPIC_PARTICIPANTS_IMPORTED" envDefault:"participants.imported"`
	DeliveryReceipts     string `env:"KAFKA_TOPIC_DELIVERY_RECEIPTS" envDefault:"ticket.delivery"`
}

type AuthConfig struct {
	// OIDCIssuer takes precedence over JWTSecret when both are set.
	OIDCIssuer   string        `env:"OIDC_ISSUER"`
	OIDCClientID string        `env:"OIDC_CLIENT_ID"`
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL     time.Duration `env:"JWT_TTL" envDefault:"12h"`
}

type TicketConfig struct {
	TokenAttempts int    `env:"TICKET_TOKEN_ATTEMPTS" envDefault:"5"`
	PDFFontPath   string `env:"TICKET_PDF_FONT" envDefault:"assets/fonts/DejaVuSans.ttf"`
	QRSize        int    `env:"TICKET_QR_SIZE" envDefault:"256"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Dir   string `env:"LOG_DIR" envDefault:"logs"`
}

type TelemetryConfig struct {
	// Endpoint empty disables tracing.
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ms-checkin"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Tickets.TokenAttempts < 1 {
		return nil, fmt.Errorf("TICKET_TOKEN_ATTEMPTS must be >= 1, got %d", cfg.Tickets.TokenAttempts)
	}
	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}
