// Package config loads the portal configuration. Sources are applied in
// order of increasing priority: built-in defaults, the JSON file named by
// the CONFIG environment variable, environment variables (a .env file is
// loaded first when present), and command-line flags.
package config

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
)

const (
	StorageMongo    = "mongo"
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds every runtime setting of the portal.
type Config struct {
	RunAddr                string        `env:"SERVER_ADDRESS" json:"server_address" validate:"omitempty,hostname_port"`
	Port                   int           `env:"PORT" json:"port" validate:"min=1,max=65535"`
	LogLevel               string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	Storage                string        `env:"STORAGE" json:"storage" validate:"omitempty,storagetype"`
	DBFileName             string        `env:"FILE_STORAGE_PATH" json:"file_storage_path"`
	DatabaseDSN            string        `env:"DATABASE_DSN" json:"database_dsn"`
	DatabaseDriver         string        `env:"DATABASE_DRIVER" json:"database_driver" validate:"oneof=pgx postgres"`
	MigrationsDir          string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	DBConnectionTimeout    time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`
	MongoURI               string        `env:"MONGO_URI" json:"mongo_uri" validate:"omitempty,uri"`
	MongoDatabase          string        `env:"MONGO_DATABASE" json:"mongo_database" validate:"required"`
	SessionCookieName      string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	SessionSigningKey      string        `env:"SESSION_SIGNING_KEY" json:"session_signing_key" validate:"omitempty,base64url"`
	StaticDir              string        `env:"STATIC_DIR" json:"static_dir"`
	GRPCAddr               string        `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	TrustedSubnet          string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	SkipSeedCourse         bool          `env:"SKIP_SEED_COURSE" json:"skip_seed_course"`
	OwnershipQueueCapacity int           `env:"OWNERSHIP_QUEUE_CAPACITY" json:"ownership_queue_capacity" validate:"gt=0"`
	OwnershipSyncInterval  time.Duration `env:"OWNERSHIP_SYNC_INTERVAL" json:"-" validate:"gt=0"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT" json:"-" validate:"gt=0"`
	PasswordHashCost       int           `env:"PASSWORD_HASH_COST" json:"password_hash_cost" validate:"min=4,max=31"`
	ReadHeaderTimeout      time.Duration `env:"READ_HEADER_TIMEOUT" json:"-" validate:"gt=0"`
	ConfigFile             string        `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	Port:                   80,
	LogLevel:               "info",
	DatabaseDriver:         "pgx",
	MigrationsDir:          "cmd/school/migrations",
	DBConnectionTimeout:    10 * time.Second,
	MongoURI:               "mongodb://127.0.0.1:27017",
	MongoDatabase:          "school-project",
	SessionCookieName:      "userId",
	StaticDir:              "public",
	OwnershipQueueCapacity: 100,
	OwnershipSyncInterval:  2 * time.Second,
	ShutdownTimeout:        10 * time.Second,
	PasswordHashCost:       10,
	ReadHeaderTimeout:      5 * time.Second,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command-line flags. Tests use it because the
// test binary has flags of its own.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds a validated Config from every source.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	// A missing .env file is the normal case.
	_ = godotenv.Load()

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if configFile := os.Getenv("CONFIG"); configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if values.RunAddr == "" {
		values.RunAddr = ":" + strconv.Itoa(values.Port)
	}

	if err := validate(values); err != nil {
		return nil, err
	}

	return values, nil
}

// applyDefaults copies every non-zero field of defaults into the zero fields of values.
func applyDefaults(values *Config, defaults Config) {
	target := reflect.ValueOf(values).Elem()
	source := reflect.ValueOf(defaults)
	for i := 0; i < target.NumField(); i++ {
		if target.Field(i).IsZero() && !source.Field(i).IsZero() {
			target.Field(i).Set(source.Field(i))
		}
	}
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}
	c.ConfigFile = fileName

	return nil
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("school", flag.ContinueOnError)
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.IntVar(&c.Port, "p", c.Port, "port to run server on when -a is not set")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.Storage, "s", c.Storage, "storage type: mongo, postgres, file or memory")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "PostgreSQL connection string")
	flags.StringVar(&c.MongoURI, "m", c.MongoURI, "MongoDB connection string")
	flags.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address of the gRPC course catalog, empty to disable")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read internal stats")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}

	return nil
}

// StorageType resolves the backend: the explicit STORAGE value wins, otherwise
// a DSN selects PostgreSQL, a file name selects the JSON file, a Mongo URI
// selects MongoDB, and memory is the fallback.
func (c *Config) StorageType() int {
	switch c.Storage {
	case StorageMongo:
		return models.StorageTypeMongo
	case StoragePostgres:
		return models.StorageTypePostgresql
	case StorageFile:
		return models.StorageTypeFile
	case StorageMemory:
		return models.StorageTypeMemory
	case "":
	default:
		return models.StorageTypeUnknown
	}

	switch {
	case c.DatabaseDSN != "":
		return models.StorageTypePostgresql
	case c.DBFileName != "":
		return models.StorageTypeFile
	case c.MongoURI != "":
		return models.StorageTypeMongo
	}

	return models.StorageTypeMemory
}

// SessionKey decodes SessionSigningKey. An empty key means unsigned cookies.
func (c *Config) SessionKey() ([]byte, error) {
	if c.SessionSigningKey == "" {
		return nil, nil
	}

	return base64.URLEncoding.DecodeString(c.SessionSigningKey)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func validateStorageType(fieldLevel validator.FieldLevel) bool {
	switch fieldLevel.Field().String() {
	case StorageMongo, StoragePostgres, StorageFile, StorageMemory:
		return true
	}

	return false
}

func validate(values *Config) error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("storagetype", validateStorageType); err != nil {
		return err
	}

	return validate.Struct(values)
}
