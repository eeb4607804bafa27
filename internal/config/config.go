package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal API.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannel        string
	JWTSecret              string
	JWTIssuer              string
	JWTTTL                 time.Duration
	SessionProfileTimeout  time.Duration
	StreamKeepAlive        time.Duration
	DashboardCacheTTL      time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
	DefaultPageSize        int
	TimetableClassesPage   int
	StudentIdentityDomain  string
	SignInRateLimit        int
	CORSAllowOrigins       string
	AccessLog              bool
	SeedEnabled            bool
	SeedToken              string
	AdminEmail             string
	AdminPassword          string
	AdminName              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "School Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("realtime.channel", "portal")
	v.SetDefault("jwt.issuer", "school-portal")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("session.profile_timeout", "3s")
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("dashboard.cache_ttl", "60s")
	v.SetDefault("cloudinary.folder", "school-portal")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("pagination.page_size", 10)
	v.SetDefault("timetable.classes_per_page", 4)
	v.SetDefault("student.identity_domain", "students.portal.local")
	v.SetDefault("auth.sign_in_rate_limit", 10)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("http.access_log", false)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("admin.name", "Administrator")

	jwtTTL, err := parseDuration(v, "jwt.ttl", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}
	profileTimeout, err := parseDuration(v, "session.profile_timeout", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "stream.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	dashboardTTL, err := parseDuration(v, "dashboard.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannel:        v.GetString("realtime.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTIssuer:              v.GetString("jwt.issuer"),
		JWTTTL:                 jwtTTL,
		SessionProfileTimeout:  profileTimeout,
		StreamKeepAlive:        keepAlive,
		DashboardCacheTTL:      dashboardTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		DefaultPageSize:        v.GetInt("pagination.page_size"),
		TimetableClassesPage:   v.GetInt("timetable.classes_per_page"),
		StudentIdentityDomain:  strings.ToLower(strings.TrimSpace(v.GetString("student.identity_domain"))),
		SignInRateLimit:        v.GetInt("auth.sign_in_rate_limit"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		AccessLog:              v.GetBool("http.access_log"),
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
		AdminEmail:             strings.ToLower(strings.TrimSpace(v.GetString("admin.email"))),
		AdminPassword:          v.GetString("admin.password"),
		AdminName:              v.GetString("admin.name"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.TimetableClassesPage <= 0 {
		cfg.TimetableClassesPage = 4
	}
	if cfg.SignInRateLimit <= 0 {
		cfg.SignInRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
