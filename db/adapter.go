package db

import (
	"fmt"

	"github.com/lonely-fr/perofish-server/config"
	dbmysql "github.com/lonely-fr/perofish-server/db/mysql"
	dbsqlite "github.com/lonely-fr/perofish-server/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode. SQLite is the
// deployment default; a bot instance and its admin tooling share one file.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(dbmysql.Config{
			DSN:     cfg.MySQLDSN,
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
