package pg

import (
	"AltarProject/tools/errs"
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	MaxConns        int32         `yaml:"maxConns" mapstructure:"maxConns"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" mapstructure:"maxConnIdleTime"`
}

// NewPool 建立连接池并 Ping 一次
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, errs.New("postgres dsn is required").Wrap()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.WrapMsg(err, "parse postgres dsn")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errs.WrapMsg(err, "unable to connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "postgres ping failed")
	}
	return pool, nil
}
