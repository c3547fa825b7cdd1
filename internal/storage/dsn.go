package storage

import (
	"fmt"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ParseDatabaseURL picks the backend for raw. postgres:// and postgresql://
// URLs go to Postgres unchanged; sqlite://<path>, file:<path> and bare paths
// go to SQLite and are reduced to the file path.
func ParseDatabaseURL(raw string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)

	switch {
	case raw == "":
		return "", "", fmt.Errorf("storage: empty database url")
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DriverPostgres, raw, nil
	case strings.HasPrefix(raw, "sqlite://"):
		raw = strings.TrimPrefix(raw, "sqlite://")
	case strings.HasPrefix(raw, "file:"):
		raw = strings.TrimPrefix(raw, "file:")
	case strings.Contains(raw, "://"):
		return "", "", fmt.Errorf("storage: unsupported database url scheme: %s", raw)
	}

	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "", "", fmt.Errorf("storage: empty sqlite path")
	}

	return DriverSQLite, raw, nil
}
