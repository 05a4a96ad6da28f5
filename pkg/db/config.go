package db

import (
	"time"

	"github.com/smallbiznis/dinein/internal/config"
)

// PoolConfig tunes the database/sql pool behind the gorm handle.
type PoolConfig struct {
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func poolConfigFrom(cfg config.Config) PoolConfig {
	pool := PoolConfig{
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
	if pool.MaxIdleConn <= 0 {
		pool.MaxIdleConn = 5
	}
	if pool.MaxOpenConn <= 0 {
		pool.MaxOpenConn = 20
	}
	return pool
}
