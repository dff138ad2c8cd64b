package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Index       Index
	Source      Source
	Output      Output
	Postgres    Postgres
	Redis       Redis
	API         API
	Cache       Cache
	Jobs        Jobs
	GoogleDrive GoogleDrive
	Telegram    Telegram
}

type Index struct {
	FirstDate  string          `env:"INDEX_FIRST_DATE"`
	SecondDate string          `env:"INDEX_SECOND_DATE"`
	Capital    decimal.Decimal `env:"INDEX_CAPITAL" envDefault:"100000000"`
	Cutoff     decimal.Decimal `env:"INDEX_CUTOFF" envDefault:"0.85"`
}

const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

type Source struct {
	Kind  string `env:"SOURCE_KIND" envDefault:"csv"`
	Path  string `env:"SOURCE_PATH" envDefault:"data/market_capitalisation.csv"`
	Sheet string `env:"SOURCE_SHEET" envDefault:"market_capitalisation"`
	URL   string `env:"SOURCE_URL" envDefault:""`
}

type Output struct {
	Dir  string `env:"OUTPUT_DIR" envDefault:"results"`
	XLSX bool   `env:"OUTPUT_XLSX" envDefault:"true"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:""`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:""`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:""`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:""`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
}

type Cache struct {
	UniverseExpiration time.Duration `env:"CACHE_UNIVERSE_EXPIRATION" envDefault:"24h"`
}

type Jobs struct {
	RebalanceCrontab   string        `env:"REBALANCE_JOB_CRONTAB" envDefault:""`
	DriveCleanInterval time.Duration `env:"DRIVE_CLEAN_JOB_INTERVAL" envDefault:"24h"`
	Timeout            time.Duration `env:"JOB_TIMEOUT" envDefault:"10m"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

type Telegram struct {
	Token  string `env:"TELEGRAM_TOKEN" envDefault:""`
	ChatID int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	return cfg, nil
}
