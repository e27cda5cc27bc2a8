package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8080",
		AuthSecret:               "secure-secret-at-least-32-chars-long",
		AuthURL:                  "http://localhost:3000",
		DBHost:                   "localhost",
		DBName:                   "earthhome",
		DBPassword:               "secure-password",
		DBSSLMode:                "disable",
		DBMaxOpenConns:           25,
		DBConnMaxLifetimeMinutes: 5,
		RedisURL:                 "redis://localhost:6379",
		StorageDriver:            "disk",
		StorageDir:               "./uploads",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateAuthSecret(t *testing.T) {
	tests := []struct {
		name        string
		secret      string
		expectError bool
	}{
		{"too short", "short", true},
		{"exactly 32", strings.Repeat("a", 32), false},
		{"exactly 64", strings.Repeat("a", 64), false},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.AuthSecret = tt.secret
			err := c.Validate()
			if tt.expectError {
				assert.ErrorContains(t, err, "AUTH_SECRET")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ProductionRejectsDefaultSecret(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.DBSSLMode = "require"
	c.AuthSecret = defaultAuthSecret

	assert.ErrorContains(t, c.Validate(), "default value")
}

func TestConfig_ValidateR2(t *testing.T) {
	c := validConfig()
	c.StorageDriver = "r2"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLOUDFLARE_ACCOUNT_ID")
	assert.Contains(t, err.Error(), "R2_SECRET_ACCESS_KEY")

	c.CloudflareAccountID = "acct"
	c.R2AccessKeyID = "key"
	c.R2SecretAccessKey = "secret"
	c.R2BucketName = "earth-and-home"
	c.R2Endpoint = "not a url"
	assert.ErrorContains(t, c.Validate(), "R2_ENDPOINT")

	c.R2Endpoint = "https://acct.r2.cloudflarestorage.com"
	assert.NoError(t, c.Validate())
}

func TestConfig_ValidateDatabaseURL(t *testing.T) {
	c := validConfig()
	c.DatabaseURL = "postgres://u:p@db:5432/earthhome?sslmode=require"
	assert.NoError(t, c.Validate())

	c.DatabaseURL = "::bad"
	assert.Error(t, c.Validate())
}

func TestConfig_UnknownStorageDriver(t *testing.T) {
	c := validConfig()
	c.StorageDriver = "ftp"
	assert.ErrorContains(t, c.Validate(), "STORAGE_DRIVER")
}

func TestLoadConfig_Normalization(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("STORAGE_DRIVER", " Disk ")
	t.Setenv("AUTH_URL", "http://localhost:3000/")
	defer viper.Reset()

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "disk", c.StorageDriver)
	assert.Equal(t, "http://localhost:3000", c.AuthURL)
	assert.Equal(t, 25, c.DBMaxOpenConns)
}
