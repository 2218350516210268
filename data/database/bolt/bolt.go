package bolt

import (
	"AltarProject/tools/errs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

type Config struct {
	Path    string        `yaml:"path" mapstructure:"path"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

const fileMode = 0o600

// Open 打开（必要时创建）本地 bbolt 文件；Timeout 为拿文件锁的等待时间
func Open(cfg Config) (*bolt.DB, error) {
	if cfg.Path == "" {
		return nil, errs.New("bolt path is required").Wrap()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, errs.WrapMsg(err, "create bolt dir", "path", cfg.Path)
	}
	db, err := bolt.Open(cfg.Path, fileMode, &bolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, errs.WrapMsg(err, "open bolt", "path", cfg.Path)
	}
	return db, nil
}
