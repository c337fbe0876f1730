package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Identity IdentityConfig
	Storage  StorageConfig
	Media    MediaConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// IdentityConfig points at the external DNI lookup service.
type IdentityConfig struct {
	BaseURL string
	Token   string
}

// StorageConfig selects the photo blob backend. Backend "s3" covers R2, MinIO
// and AWS; "local" serves files from a directory for development.
type StorageConfig struct {
	Backend       string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string // base under which uploaded keys are publicly fetchable
	LocalDir      string
}

type MediaConfig struct {
	StagingDir  string
	CameraSpool string
	JPEGQuality int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads config.yaml (if present) with TALLER_-prefixed environment
// overrides. Missing file is not fatal: every key has a default or comes from
// the environment.
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/taller")

	v.SetEnvPrefix("TALLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "taller_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "taller_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("identity.base_url", "https://api.factiliza.com")
	v.SetDefault("identity.token", "")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/media")
	v.SetDefault("storage.local_dir", "data/media")
	v.SetDefault("media.staging_dir", "data/staging")
	v.SetDefault("media.camera_spool", "data/camera")
	v.SetDefault("media.jpeg_quality", 70)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config file: %v", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Identity: IdentityConfig{
			BaseURL: v.GetString("identity.base_url"),
			Token:   v.GetString("identity.token"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage.backend"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			LocalDir:      v.GetString("storage.local_dir"),
		},
		Media: MediaConfig{
			StagingDir:  v.GetString("media.staging_dir"),
			CameraSpool: v.GetString("media.camera_spool"),
			JPEGQuality: v.GetInt("media.jpeg_quality"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
	}
}
