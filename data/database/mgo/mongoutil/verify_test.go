package mongoutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		wantURI string
	}{
		{
			name:    "missing address",
			cfg:     Config{Database: "altar"},
			wantErr: true,
		},
		{
			name:    "missing database",
			cfg:     Config{Uri: "mongodb://localhost:27017"},
			wantErr: true,
		},
		{
			name:    "uri kept as is",
			cfg:     Config{Uri: "mongodb://localhost:27017", Database: "altar"},
			wantURI: "mongodb://localhost:27017",
		},
		{
			name:    "built from address with credentials",
			cfg:     Config{Address: []string{"a:1", "b:2"}, Database: "altar", Username: "u", Password: "p"},
			wantURI: "mongodb://u:p@a:1,b:2/altar?authSource=altar&maxPoolSize=100",
		},
		{
			name:    "explicit auth source",
			cfg:     Config{Address: []string{"a:1"}, Database: "altar", AuthSource: "admin", MaxPoolSize: 5},
			wantURI: "mongodb://a:1/altar?authSource=admin&maxPoolSize=5",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := cfg.ValidateAndSetDefaults()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantURI, cfg.Uri)
			assert.Equal(t, defaultMaxRetry, cfg.MaxRetry)
		})
	}
}

func TestCheck(t *testing.T) {
	err := Check(context.Background(), &Config{Uri: "mongodb://127.0.0.1:27017"})
	assert.Error(t, err, "database is required")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = Check(ctx, &Config{Uri: "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200", Database: "altar"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MongoDB ping failed")
}
