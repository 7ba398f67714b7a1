package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Handle は *sql.DB とその方言をまとめたもの。
// main で開いて shutdown で閉じる。各 Service にはこれを渡す。
type Handle struct {
	*sql.DB
	Dialect Dialect
}

func Connect(c DatabaseConfig) (*Handle, error) {
	switch c.Driver {
	case DriverSQLite:
		return OpenSQLite(c.Path)
	case DriverMySQL, "":
		return connectMySQL(c)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}

func connectMySQL(c DatabaseConfig) (*Handle, error) {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 3 * time.Second
	mc.ReadTimeout = 5 * time.Second
	mc.WriteTimeout = 5 * time.Second

	db, err := sql.Open(DriverMySQL, mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Handle{DB: db, Dialect: MySQL}, nil
}

// OpenSQLite opens (or creates) a SQLite database file.
// Write transactions start IMMEDIATE so concurrent writers serialize on BEGIN.
func OpenSQLite(path string) (*Handle, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)
	return &Handle{DB: db, Dialect: SQLite}, nil
}
