package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Storage       StorageConfig
	Drive         DriveConfig
	Replenishment ReplenishmentConfig
	LogLevel      string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	CatalogTTLHours   int
	LastRunTTLSeconds int
}

// CatalogTTL is how long cached catalog entries stay valid.
func (c CacheConfig) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLHours) * time.Hour
}

func (c CacheConfig) LastRunTTL() time.Duration {
	return time.Duration(c.LastRunTTLSeconds) * time.Second
}

// StorageConfig points at the S3-compatible bucket receiving run bundles.
// Upload is skipped when Endpoint is empty.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	DownloadDir     string
}

type ReplenishmentConfig struct {
	RulesFile       string
	RulesProfile    string
	OutputDir       string
	SequenceFile    string
	SequenceBackend string
	Workers         int
	LinesFile       string
	ProductsFile    string
	InputDir        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenish")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_CATALOG_TTL_HOURS", 15*24)
		viper.SetDefault("CACHE_LAST_RUN_TTL_SECONDS", 7*24*3600)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_BUCKET", "replenishment")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_PREFIX", "runs")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("GOOGLE_DRIVE_DOWNLOAD_DIR", "./data/drive")
		viper.SetDefault("RULES_FILE", "")
		viper.SetDefault("RULES_PROFILE", "")
		viper.SetDefault("OUTPUT_DIR", "./data/output")
		viper.SetDefault("SEQUENCE_FILE", "./data/secuencia_global.json")
		viper.SetDefault("SEQUENCE_BACKEND", "file")
		viper.SetDefault("ENGINE_WORKERS", 0)

		viper.AutomaticEnv()

		ensureDir(viper.GetString("OUTPUT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				CatalogTTLHours:   viper.GetInt("CACHE_CATALOG_TTL_HOURS"),
				LastRunTTLSeconds: viper.GetInt("CACHE_LAST_RUN_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Drive: DriveConfig{
				CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
				FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
				DownloadDir:     viper.GetString("GOOGLE_DRIVE_DOWNLOAD_DIR"),
			},
			Replenishment: ReplenishmentConfig{
				RulesFile:       viper.GetString("RULES_FILE"),
				RulesProfile:    viper.GetString("RULES_PROFILE"),
				OutputDir:       viper.GetString("OUTPUT_DIR"),
				SequenceFile:    viper.GetString("SEQUENCE_FILE"),
				SequenceBackend: viper.GetString("SEQUENCE_BACKEND"),
				Workers:         viper.GetInt("ENGINE_WORKERS"),
				LinesFile:       viper.GetString("LINES_FILE"),
				ProductsFile:    viper.GetString("PRODUCTS_FILE"),
				InputDir:        viper.GetString("INPUT_DIR"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
