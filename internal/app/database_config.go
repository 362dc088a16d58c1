package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/database"
	"github.com/charlesng35/tripmate/pkg/logger"
)

// ConnectionConfig converts DatabaseConfig into the database package representation,
// picking the host block that matches the configured driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var block DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		block = c.Postgres
	case "mysql":
		block = c.MySQL
	default:
		return cfg
	}

	cfg.Host = strings.TrimSpace(block.Host)
	cfg.Port = block.Port
	cfg.Name = strings.TrimSpace(block.Database)
	cfg.User = strings.TrimSpace(block.Username)
	cfg.Password = block.Password
	cfg.Options = parseOptions(block.Options)
	return cfg
}

// parseOptions reads "key=value" pairs separated by '&' or whitespace.
func parseOptions(raw string) map[string]string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '&' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil
	}
	options := make(map[string]string, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		options[key] = strings.TrimSpace(value)
	}
	return options
}

// OpenDatabase connects with the configured driver and migrates the schema.
func OpenDatabase(c DatabaseConfig) (*gorm.DB, error) {
	cfg := c.ConnectionConfig()
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	logger.WithModule("database").Info("database connected", zap.String("driver", driver))
	return db, nil
}
