package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	params := `
[build]
min_anchor_length = 100
max_paths_in_snarl = 9

[server]
read_timeout = "2s"
`
	if err := os.WriteFile(path, []byte(params), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	if err := buildCmd.Flags().Set("max-paths", "12"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Build.MinAnchorLength != 100 {
		t.Errorf("MinAnchorLength = %d, want 100 from the file", cfg.Build.MinAnchorLength)
	}
	if cfg.Build.MaxPathsInSnarl != 12 {
		t.Errorf("MaxPathsInSnarl = %d, want 12 from the flag", cfg.Build.MaxPathsInSnarl)
	}
	if cfg.Build.MinNodesInAnchor != defaults.Build.MinNodesInAnchor {
		t.Errorf("MinNodesInAnchor = %d, want default %d", cfg.Build.MinNodesInAnchor, defaults.Build.MinNodesInAnchor)
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", cfg.Server.ReadTimeout)
	}
}
