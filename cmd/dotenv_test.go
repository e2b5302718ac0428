package cmd

import (
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/pgschema/pgmerge/cmd/util"
	"github.com/pgschema/pgmerge/internal/config"
)

func TestDotenvLoading(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, _ := os.Getwd()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}
	defer func() {
		os.Chdir(originalDir)
	}()

	envVars := []string{"PGHOST", "PGPORT", "PGDATABASE", "PGUSER", "PGPASSWORD", "PGAPPNAME"}
	clean := func() {
		os.Remove(".env")
		for _, envVar := range envVars {
			os.Unsetenv(envVar)
		}
	}

	resolve := func(t *testing.T) *util.ConnectionConfig {
		t.Helper()
		var f util.ConnectionFlags
		cmd := &cobra.Command{Use: "test"}
		f.Register(cmd)
		cfg, err := f.Resolve(cmd, config.Connection{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		return cfg
	}

	t.Run("ConnectionFromEnvFile", func(t *testing.T) {
		clean()
		defer clean()

		envContent := `PGHOST=test.example.com
PGPORT=5433
PGDATABASE=testdb
PGUSER=testuser
PGPASSWORD=testpass
PGAPPNAME=test-pgmerge
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create .env file: %v", err)
		}

		loadDotenv()
		cfg := resolve(t)

		want := util.ConnectionConfig{
			Host:            "test.example.com",
			Port:            5433,
			Database:        "testdb",
			User:            "testuser",
			Password:        "testpass",
			SSLMode:         util.DefaultSSLMode,
			ApplicationName: "test-pgmerge",
		}
		if *cfg != want {
			t.Errorf("expected %+v, got %+v", want, *cfg)
		}
	})

	t.Run("EnvVarPriority", func(t *testing.T) {
		clean()
		defer clean()

		os.Setenv("PGPASSWORD", "env_password")
		if err := os.WriteFile(".env", []byte("PGPASSWORD=dotenv_password\nPGDATABASE=db\nPGUSER=u\n"), 0644); err != nil {
			t.Fatalf("Failed to create .env file: %v", err)
		}

		loadDotenv()
		if cfg := resolve(t); cfg.Password != "env_password" {
			t.Errorf("Expected existing env var to take precedence, got '%s'", cfg.Password)
		}
	})

	t.Run("MissingEnvFile", func(t *testing.T) {
		clean()
		loadDotenv()
		if os.Getenv("PGPASSWORD") != "" {
			t.Error("Expected PGPASSWORD to stay empty without a .env file")
		}
	})
}
