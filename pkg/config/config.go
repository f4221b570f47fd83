package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// State store backends.
const (
	StateBackendFile  = "file"
	StateBackendRedis = "redis"
)

type Config struct {
	Env string

	Source    SourceConfig
	Firestore FirestoreConfig
	Drive     DriveConfig
	State     StateConfig
	Redis     RedisConfig
	Control   ControlConfig
	Admin     AdminConfig
	Log       LogConfig
}

// SourceConfig describes the local desktop database the bridge replicates from.
type SourceConfig struct {
	DBPath          string `validate:"required"`
	Table           string `validate:"required"`
	KeyColumn       string `validate:"required"`
	AttachmentTable string
	TargetYear      int `validate:"gt=0"`
}

// FirestoreConfig points the bridge at the remote document store. An empty
// project ID disables the document sink (degraded mode).
type FirestoreConfig struct {
	ProjectID         string
	CredentialsFile   string
	RecordsCollection string `validate:"required"`
	ConfigCollection  string `validate:"required"`
	ConfigDocument    string `validate:"required"`
	AuditCollection   string `validate:"required"`
}

// DriveConfig points the bridge at object storage. An empty credentials file
// disables the object sink (degraded mode).
type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	BackupFileID    string
	SignalName      string `validate:"required"`
}

// StateConfig selects where the sync state map is persisted.
type StateConfig struct {
	Backend string `validate:"oneof=file redis"`
	DataDir string `validate:"required"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	StateKey string
}

// ControlConfig tunes the heartbeat/config/signal loop and sync scheduling.
type ControlConfig struct {
	TickInterval  time.Duration `validate:"gt=0"`
	SyncEveryTick int           `validate:"gt=0"`
	ConfigTimeout time.Duration `validate:"gt=0"`
}

// AdminConfig configures the local observability API.
type AdminConfig struct {
	Port           int `validate:"gt=0"`
	APIToken       string
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Source = SourceConfig{
		DBPath:          v.GetString("SOURCE_DB_PATH"),
		Table:           v.GetString("SOURCE_TABLE"),
		KeyColumn:       v.GetString("SOURCE_KEY_COLUMN"),
		AttachmentTable: v.GetString("SOURCE_ATTACHMENT_TABLE"),
		TargetYear:      v.GetInt("TARGET_YEAR"),
	}

	cfg.Firestore = FirestoreConfig{
		ProjectID:         v.GetString("FIRESTORE_PROJECT_ID"),
		CredentialsFile:   v.GetString("FIRESTORE_CREDENTIALS_FILE"),
		RecordsCollection: v.GetString("FIRESTORE_RECORDS_COLLECTION"),
		ConfigCollection:  v.GetString("FIRESTORE_CONFIG_COLLECTION"),
		ConfigDocument:    v.GetString("FIRESTORE_CONFIG_DOCUMENT"),
		AuditCollection:   v.GetString("FIRESTORE_AUDIT_COLLECTION"),
	}

	cfg.Drive = DriveConfig{
		CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
		FolderID:        v.GetString("DRIVE_FOLDER_ID"),
		BackupFileID:    v.GetString("DRIVE_BACKUP_FILE_ID"),
		SignalName:      v.GetString("DRIVE_SIGNAL_NAME"),
	}

	cfg.State = StateConfig{
		Backend: v.GetString("STATE_BACKEND"),
		DataDir: v.GetString("DATA_DIR"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		StateKey: v.GetString("REDIS_STATE_KEY"),
	}

	cfg.Control = ControlConfig{
		TickInterval:  parseDuration(v.GetString("CONTROL_TICK_INTERVAL"), time.Minute),
		SyncEveryTick: v.GetInt("SYNC_EVERY_TICKS"),
		ConfigTimeout: parseDuration(v.GetString("REMOTE_CONFIG_TIMEOUT"), 15*time.Second),
	}

	cfg.Admin = AdminConfig{
		Port:           v.GetInt("ADMIN_PORT"),
		APIToken:       v.GetString("ADMIN_API_TOKEN"),
		AllowedOrigins: splitAndTrim(v.GetString("ADMIN_ALLOWED_ORIGINS")),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("SOURCE_DB_PATH", "./data/agenda.db")
	v.SetDefault("SOURCE_TABLE", "DATA AGENDA SURAT MASUK 2025")
	v.SetDefault("SOURCE_KEY_COLUMN", "NO URUT")
	v.SetDefault("SOURCE_ATTACHMENT_TABLE", "LAMPIRAN SURAT")
	v.SetDefault("TARGET_YEAR", 2025)

	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "serviceAccountKey.json")
	v.SetDefault("FIRESTORE_RECORDS_COLLECTION", "surat_masuk")
	v.SetDefault("FIRESTORE_CONFIG_COLLECTION", "config")
	v.SetDefault("FIRESTORE_CONFIG_DOCUMENT", "system")
	v.SetDefault("FIRESTORE_AUDIT_COLLECTION", "audit_logs")

	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_BACKUP_FILE_ID", "")
	v.SetDefault("DRIVE_SIGNAL_NAME", "sync_signal.txt")

	v.SetDefault("STATE_BACKEND", StateBackendFile)
	v.SetDefault("DATA_DIR", "./bridge-data")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_STATE_KEY", "mailbridge:sync_state")

	v.SetDefault("CONTROL_TICK_INTERVAL", "60s")
	v.SetDefault("SYNC_EVERY_TICKS", 10)
	v.SetDefault("REMOTE_CONFIG_TIMEOUT", "15s")

	v.SetDefault("ADMIN_PORT", 8317)
	v.SetDefault("ADMIN_API_TOKEN", "")
	v.SetDefault("ADMIN_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
