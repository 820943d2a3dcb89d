package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugAddr                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	UploadConfig struct {
		Backend      string // "gcs" | "local"
		AvatarBucket string
		CourseBucket string
		MediaRoot    string // local backend only
		PublicURL    string // local backend only
	}

	Config struct {
		AppName         string
		Env             string // DEV (default), TEST, QA, PROD
		Debug           bool
		TestMode        bool
		Build           string
		WorkDir         string
		SecretKey       []byte
		FrontendBaseURL string

		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration

		// EnrollmentUnitPrice is the flat per-enrollment price used for the
		// instructor revenue estimate.
		EnrollmentUnitPrice float64

		SendgridAPIKey string
		RollbarToken   string
		GeminiAPIKey   string
		GeminiModel    string

		Server   ServerConfig
		Database DatabaseConfig
		Upload   UploadConfig
	}
)

func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Talim")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "h1+f$8y@u(250_20m=#1ou$(y8t0&fyhh^bxb9a-ac!0p9ro9m")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("enrollmentUnitPrice", 49.99)
	v.SetDefault("geminiModel", "gemini-2.5-flash")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugAddr", ":8001")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "talim")
	v.SetDefault("database.user", "talim")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.avatarBucket", "avatars")
	v.SetDefault("upload.courseBucket", "courses_files")
	v.SetDefault("upload.mediaRoot", "media")
	v.SetDefault("upload.publicURL", "http://localhost:8000/media")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		Build:           v.GetString("build"),
		WorkDir:         wd,
		SecretKey:       []byte(v.GetString("secretKey")),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		EnrollmentUnitPrice:       v.GetFloat64("enrollmentUnitPrice"),
		SendgridAPIKey:            v.GetString("sendgridAPIKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		GeminiAPIKey:              v.GetString("geminiAPIKey"),
		GeminiModel:               v.GetString("geminiModel"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugAddr:                 v.GetString("server.debugAddr"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Upload: UploadConfig{
			Backend:      v.GetString("upload.backend"),
			AvatarBucket: v.GetString("upload.avatarBucket"),
			CourseBucket: v.GetString("upload.courseBucket"),
			MediaRoot:    v.GetString("upload.mediaRoot"),
			PublicURL:    v.GetString("upload.publicURL"),
		},
	}
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			// not running from within the project tree
			return wd
		}
		currDir = newDir
	}
}

// NewTestConfig returns a Config suitable for unit tests.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	// keep Debug off so error responses keep their production shape
	conf.Debug = false
	return conf
}

func (c *Config) Check() error {
	if len(c.SecretKey) == 0 {
		return fmt.Errorf("config: secretKey is required")
	}
	if !c.Debug && c.SendgridAPIKey == "" {
		return fmt.Errorf("config: sendgridAPIKey is required in %s", c.Env)
	}
	return nil
}
