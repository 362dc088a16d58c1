package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

// buildMySQLDSN formats the connection through the driver's own config type.
// Timestamps are parsed in UTC to match what the services write.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := drivermysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	dsn := mc.FormatDSN()
	if len(cfg.Options) == 0 {
		return dsn, nil
	}

	// Round-trip through ParseDSN so driver settings such as tls or timeout land in
	// their typed fields instead of being sent to the server as session variables.
	extra := url.Values{}
	for key, value := range cfg.Options {
		extra.Set(key, value)
	}
	parsed, err := drivermysql.ParseDSN(dsn + "&" + extra.Encode())
	if err != nil {
		return "", fmt.Errorf("mysql options: %w", err)
	}
	return parsed.FormatDSN(), nil
}
