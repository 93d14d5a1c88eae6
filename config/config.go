package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds configuration values. Secrets have no in-code defaults and
// must come from the JSON config file or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	GinMode            string
	GinPath            string
	RateLimitPerMinute int
	AllowedOrigins     []string
	FrontendBase       string

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	UploadTTLMinutes int
}

// fileConfig mirrors config/config.json; sections are optional.
type fileConfig struct {
	App struct {
		Port               string   `json:"Port"`
		JWTSecret          string   `json:"JWTSecret"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		FrontendBase       string   `json:"FrontendBase"`
		GinMode            string   `json:"GinMode"`
		GinPath            string   `json:"GinPath"`
	} `json:"app"`
	Database struct {
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost"`
		RedisPort     int    `json:"RedisPort"`
		RedisDB       int    `json:"RedisDB"`
		RedisPassword string `json:"RedisPassword"`
	} `json:"redis"`
	OAuth struct {
		GitHubClientID     string `json:"GitHubClientID"`
		GitHubClientSecret string `json:"GitHubClientSecret"`
		GoogleClientID     string `json:"GoogleClientID"`
		GoogleClientSecret string `json:"GoogleClientSecret"`
		RedirectBase       string `json:"RedirectBase"`
	} `json:"oauth"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Uploads struct {
		TTLMinutes int `json:"TTLMinutes"`
	} `json:"uploads"`
}

var (
	cfg    AppConfig
	loaded bool
)

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config file: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in config or environment")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTesting overrides the cached configuration; tests only.
func SetForTesting(c AppConfig) {
	cfg = c
	loaded = true
}

func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // missing file is fine; env can carry everything
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	out.AppPort = fc.App.Port
	out.JWTSecret = fc.App.JWTSecret
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.FrontendBase = fc.App.FrontendBase
	out.GinMode = fc.App.GinMode
	out.GinPath = fc.App.GinPath

	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.GitHubClientID = fc.OAuth.GitHubClientID
	out.GitHubClientSecret = fc.OAuth.GitHubClientSecret
	out.GoogleClientID = fc.OAuth.GoogleClientID
	out.GoogleClientSecret = fc.OAuth.GoogleClientSecret
	out.OAuthRedirectBase = fc.OAuth.RedirectBase

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.UploadTTLMinutes = fc.Uploads.TTLMinutes
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.FrontendBase == "" {
		c.FrontendBase = "http://localhost:3000"
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "livejournal"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadTTLMinutes == 0 {
		c.UploadTTLMinutes = 60
	}
}

func applyEnvOverrides(c *AppConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				log.Fatalf("invalid integer value for %s: %v", key, err)
			}
			*dst = n
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	setString("FRONTEND_BASE_URL", &c.FrontendBase)

	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	setString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	setString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	setString("OAUTH_REDIRECT_BASE_URL", &c.OAuthRedirectBase)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}

	setInt("UPLOAD_TTL_MINUTES", &c.UploadTTLMinutes)
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
