package tools

import (
	"os"
	"strings"
)

// GetEnv 读取环境变量，空值返回 def
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvWithPrefix 收集 prefix 开头的环境变量，返回去掉前缀后的 key -> value
func EnvWithPrefix(prefix string) map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if name == "" {
			continue
		}
		out[name] = v
	}
	return out
}
