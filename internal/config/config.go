// Package config loads server settings from flags, environment variables and
// defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adampresley/configinator"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	StorageDisk = "disk"
	StorageS3   = "s3"
)

type Config struct {
	AppEnv    string `flag:"env" env:"APP_ENV" default:"development" description:"Runtime environment: 'development' or 'production'"`
	Host      string `flag:"host" env:"HOST" default:"" description:"Interface to bind the HTTP server to"`
	Port      int    `flag:"port" env:"PORT" default:"5000" description:"Port to bind the HTTP server to"`
	LogLevel  string `flag:"loglevel" env:"LOG_LEVEL" default:"info" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	LogFormat string `flag:"logformat" env:"LOG_FORMAT" default:"text" description:"Log output format: 'json', 'text' or 'pretty'"`

	DBDriver      string `flag:"dbdriver" env:"DB_DRIVER" default:"sqlite" description:"Catalogue store: 'sqlite' or 'mongo'"`
	DBPath        string `flag:"dbpath" env:"DB_PATH" default:"data/music.db" description:"SQLite database file"`
	MongoURI      string `flag:"mongouri" env:"MONGO_URI" default:"mongodb://localhost:27017" description:"MongoDB connection string"`
	MongoDatabase string `flag:"mongodb" env:"MONGO_DATABASE" default:"music" description:"MongoDB database name"`

	StorageBackend     string `flag:"storage" env:"STORAGE_BACKEND" default:"disk" description:"Where uploaded media goes: 'disk' or 's3'"`
	MediaDir           string `flag:"mediadir" env:"MEDIA_DIR" default:"data/media" description:"Directory for the disk storage backend"`
	PublicBaseURL      string `flag:"publicbaseurl" env:"PUBLIC_BASE_URL" default:"http://localhost:5000" description:"Base URL media links are built from"`
	AwsEndpointUrl     string `flag:"awsep" env:"AWS_ENDPOINT_URL" default:"" description:"AWS endpoint URL (leave empty for AWS itself)"`
	AwsRegion          string `flag:"awsregion" env:"AWS_REGION" default:"us-east-1" description:"AWS region"`
	AwsAccessKeyId     string `flag:"awsaccesskeyid" env:"AWS_ACCESS_KEY_ID" default:"" description:"AWS access key ID"`
	AwsSecretAccessKey string `flag:"awssecretaccesskey" env:"AWS_SECRET_ACCESS_KEY" default:"" description:"AWS secret access key"`
	AwsBucket          string `flag:"awsbucket" env:"AWS_BUCKET" default:"" description:"S3 bucket for uploaded media"`

	TempDir           string `flag:"tempdir" env:"TEMP_DIR" default:"tmp" description:"Directory uploads are buffered in"`
	MaxUploadMB       int    `flag:"maxupload" env:"MAX_UPLOAD_MB" default:"100" description:"Per-file upload limit in megabytes"`
	TempSweepMinutes  int    `flag:"tempsweep" env:"TEMP_SWEEP_MINUTES" default:"60" description:"How often stale temp files are removed"`
	TempMaxAgeMinutes int    `flag:"tempmaxage" env:"TEMP_MAX_AGE_MINUTES" default:"60" description:"Age after which a temp file counts as stale"`

	CORSOrigins string `flag:"corsorigins" env:"CORS_ORIGINS" default:"http://localhost:3000" description:"Comma separated list of allowed browser origins"`

	JWTSecret         string `flag:"jwtsecret" env:"JWT_SECRET" default:"" description:"Secret used to sign session tokens (16+ characters)"`
	SessionTTLHours   int    `flag:"sessionttl" env:"SESSION_TTL_HOURS" default:"24" description:"How long a sign-in lasts, in hours"`
	OAuthClientID     string `flag:"oauthclientid" env:"OAUTH_CLIENT_ID" default:"" description:"OAuth client ID"`
	OAuthClientSecret string `flag:"oauthclientsecret" env:"OAUTH_CLIENT_SECRET" default:"" description:"OAuth client secret"`
	OAuthCallbackURL  string `flag:"oauthcallback" env:"OAUTH_CALLBACK_URL" default:"http://localhost:5000/api/auth/callback" description:"OAuth redirect URL"`
	OAuthAuthURL      string `flag:"oauthauthurl" env:"OAUTH_AUTH_URL" default:"" description:"Authorization endpoint (empty = GitHub)"`
	OAuthTokenURL     string `flag:"oauthtokenurl" env:"OAUTH_TOKEN_URL" default:"" description:"Token endpoint (empty = GitHub)"`
	OAuthUserInfoURL  string `flag:"oauthuserinfo" env:"OAUTH_USERINFO_URL" default:"" description:"Profile endpoint (empty = GitHub)"`
	OAuthScopes       string `flag:"oauthscopes" env:"OAUTH_SCOPES" default:"" description:"Comma separated OAuth scopes (empty = provider default)"`
	AdminEmails       string `flag:"adminemails" env:"ADMIN_EMAILS" default:"" description:"Comma separated list of admin email addresses"`
	FrontendURL       string `flag:"frontendurl" env:"FRONTEND_URL" default:"http://localhost:3000" description:"Where the browser is sent after sign-in"`

	StaticDir    string `flag:"staticdir" env:"STATIC_DIR" default:"" description:"Built client to serve in production (empty = none)"`
	ExposeErrors string `flag:"exposeerrors" env:"EXPOSE_ERRORS" default:"" description:"Show internal error messages to clients: 'true', 'false' or empty for on-in-development"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.AppEnv))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}

	switch c.StorageBackend {
	case StorageDisk:
		if c.MediaDir == "" {
			errs = append(errs, errors.New("MEDIA_DIR is required for the disk backend"))
		}
	case StorageS3:
		if c.AwsBucket == "" {
			errs = append(errs, errors.New("AWS_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.SessionTTLHours <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.TempSweepMinutes <= 0 || c.TempMaxAgeMinutes <= 0 {
		errs = append(errs, errors.New("TEMP_SWEEP_MINUTES and TEMP_MAX_AGE_MINUTES must be positive"))
	}
	if _, err := c.exposeErrors(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ShouldExposeErrors resolves EXPOSE_ERRORS, defaulting to on outside production.
func (c Config) ShouldExposeErrors() bool {
	v, err := c.exposeErrors()
	if err != nil {
		return false
	}
	return v
}

func (c Config) exposeErrors() (bool, error) {
	if strings.TrimSpace(c.ExposeErrors) == "" {
		return !c.IsProduction(), nil
	}
	v, err := strconv.ParseBool(c.ExposeErrors)
	if err != nil {
		return false, fmt.Errorf("EXPOSE_ERRORS must be a boolean, got %q", c.ExposeErrors)
	}
	return v, nil
}

func (c Config) CORSOriginList() []string { return SplitList(c.CORSOrigins) }
func (c Config) AdminEmailList() []string { return SplitList(c.AdminEmails) }
func (c Config) OAuthScopeList() []string { return SplitList(c.OAuthScopes) }

// SplitList splits a comma separated value, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
