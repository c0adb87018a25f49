package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-rooms"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	GRPC     GRPC
	RoomCode RoomCode
	Session  Session
	Archive  Archive
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx and goose.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds room state configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// GRPC configures the room code service on both ends.
type GRPC struct {
	// RoomCodeAddr is dialed by the API.
	RoomCodeAddr string        `env:"ROOMCODE_GRPC_ADDR" envDefault:"localhost:50051"`
	ListenAddr   string        `env:"ROOMCODE_GRPC_LISTEN" envDefault:"0.0.0.0:50051"`
	MetricsAddr  string        `env:"ROOMCODE_METRICS_ADDR" envDefault:"0.0.0.0:9091"`
	CallTimeout  time.Duration `env:"ROOMCODE_CALL_TIMEOUT" envDefault:"3s"`
}

// RoomCode governs code reservations.
type RoomCode struct {
	TTL time.Duration `env:"ROOM_CODE_TTL" envDefault:"6h"`
}

// Session groups live quiz defaults.
type Session struct {
	RoomTTL                 time.Duration `env:"SESSION_ROOM_TTL" envDefault:"6h"`
	EndedTTL                time.Duration `env:"SESSION_ENDED_TTL" envDefault:"1h"`
	DefaultQuestionDuration time.Duration `env:"SESSION_DEFAULT_QUESTION_DURATION" envDefault:"20s"`
	BaseScore               int           `env:"SESSION_BASE_SCORE" envDefault:"1000"`
	PresenceGrace           time.Duration `env:"SESSION_HOST_PRESENCE_GRACE" envDefault:"70s"`
	QuizCacheTTL            time.Duration `env:"SESSION_QUIZ_CACHE_TTL" envDefault:"6h"`
}

// Archive governs retries of the durable session archive.
type Archive struct {
	SweepInterval time.Duration `env:"ARCHIVE_SWEEP_INTERVAL" envDefault:"1m"`
	BatchSize     int           `env:"ARCHIVE_SWEEP_BATCH" envDefault:"50"`
}

// CORS holds the origins allowed to open sockets.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// RoomCodeService is the configuration of the standalone room code binary. It needs no Postgres.
type RoomCodeService struct {
	Name string `env:"APP_NAME" envDefault:"quiz-roomcode"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	Redis Redis
	GRPC  GRPC
}

// LoadRoomCode parses environment variables for the room code service.
func LoadRoomCode(ctx context.Context) (*RoomCodeService, error) {
	cfg := &RoomCodeService{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Migrator is the configuration of cmd/migrator.
type Migrator struct {
	Postgres Postgres
}

func LoadMigrator() (*Migrator, error) {
	cfg := &Migrator{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
