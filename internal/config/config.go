package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"ach-batch-backend/internal/services/nacha"

	"github.com/go-playground/validator/v10"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Env         string   `validate:"required"`
	HTTPAddr    string   `validate:"required"`
	CORSOrigins []string `validate:"required,min=1,dive,required"`
	LogLevel    string   `validate:"omitempty,oneof=debug info warn error"`

	Storage       string `validate:"oneof=postgres memory"`
	DatabaseURL   string `validate:"required_if=Storage postgres"`
	DBAutoMigrate bool

	ACH ACH
}

// ACH describes the originating company and the bank the files are sent to.
type ACH struct {
	ImmediateDestination     string `validate:"required,numeric,len=9"`
	ImmediateDestinationName string `validate:"max=23"`
	ImmediateOrigin          string `validate:"required,min=9,max=10"`
	ImmediateOriginName      string `validate:"max=23"`
	CompanyName              string `validate:"required,max=16"`
	CompanyID                string `validate:"required,max=10"`
	ODFIRouting              string `validate:"required,numeric,len=9"`
	FileIDModifier           string `validate:"omitempty,len=1,alphanum"`
	OutboxDir                string
	Timezone                 string `validate:"required"`
}

// Load reads the configuration from the environment. Call godotenv.Load first
// to pick up a local .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Env:           getenv("APP_ENV", "production"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		CORSOrigins:   split(getenv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:      strings.ToLower(os.Getenv("LOG_LEVEL")),
		Storage:       strings.ToLower(getenv("STORAGE", StoragePostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: true,
		ACH: ACH{
			ImmediateDestination:     os.Getenv("ACH_IMMEDIATE_DESTINATION"),
			ImmediateDestinationName: os.Getenv("ACH_IMMEDIATE_DESTINATION_NAME"),
			ImmediateOrigin:          os.Getenv("ACH_IMMEDIATE_ORIGIN"),
			ImmediateOriginName:      os.Getenv("ACH_IMMEDIATE_ORIGIN_NAME"),
			CompanyName:              os.Getenv("ACH_COMPANY_NAME"),
			CompanyID:                os.Getenv("ACH_COMPANY_ID"),
			ODFIRouting:              os.Getenv("ACH_ODFI_ROUTING"),
			FileIDModifier:           strings.ToUpper(os.Getenv("ACH_FILE_ID_MODIFIER")),
			OutboxDir:                os.Getenv("ACH_OUTBOX_DIR"),
			Timezone:                 getenv("ACH_TIMEZONE", "America/New_York"),
		},
	}

	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: DB_AUTO_MIGRATE: %w", ErrInvalidConfig, err)
		}
		cfg.DBAutoMigrate = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: ACH_TIMEZONE: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location is the timezone business dates are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ACH.Timezone)
}

func (c *Config) Originator() nacha.Originator {
	return nacha.Originator{
		ImmediateDestination:     c.ACH.ImmediateDestination,
		ImmediateDestinationName: c.ACH.ImmediateDestinationName,
		ImmediateOrigin:          c.ACH.ImmediateOrigin,
		ImmediateOriginName:      c.ACH.ImmediateOriginName,
		CompanyName:              c.ACH.CompanyName,
		CompanyID:                c.ACH.CompanyID,
		ODFIRouting:              c.ACH.ODFIRouting,
		FileIDModifier:           c.ACH.FileIDModifier,
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
