// Package config holds the tunable parameters of the anchor pipeline. The
// same struct is filled from command line flags and params files through
// viper and written next to every output as params.toml. The mapstructure
// and toml keys are identical so either decoder reads the other's files.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Build configures the anchor dictionary builder.
type Build struct {
	MinAnchorLength   int    `mapstructure:"min_anchor_length" toml:"min_anchor_length"`
	MinNodesInAnchor  int    `mapstructure:"min_nodes_in_anchor" toml:"min_nodes_in_anchor"`
	MaxPathsInSnarl   int    `mapstructure:"max_paths_in_snarl" toml:"max_paths_in_snarl"`
	MaxNodesInSnarl   int    `mapstructure:"max_nodes_in_snarl" toml:"max_nodes_in_snarl"`
	ReferencePathHint string `mapstructure:"reference_path_hint" toml:"reference_path_hint"`
	ExtendBoundaries  bool   `mapstructure:"extend_boundaries" toml:"extend_boundaries"`
	Workers           int    `mapstructure:"workers" toml:"workers"`
}

// Match configures alignment parsing and the matcher.
type Match struct {
	MinMapQ     int `mapstructure:"min_mapq" toml:"min_mapq"`
	MinCsLength int `mapstructure:"min_cs_length" toml:"min_cs_length"`
	Workers     int `mapstructure:"workers" toml:"workers"`
}

// Extend configures the boundary extender and merger.
type Extend struct {
	MinAnchorLength int     `mapstructure:"min_anchor_length" toml:"min_anchor_length"`
	MinReadSupport  int     `mapstructure:"min_read_support" toml:"min_read_support"`
	DropFraction    float64 `mapstructure:"drop_fraction" toml:"drop_fraction"`
	MinCoverage     int     `mapstructure:"min_coverage" toml:"min_coverage"`
	MinCommonReads  int     `mapstructure:"min_common_reads" toml:"min_common_reads"`
}

// Report configures exported files.
type Report struct {
	ReadsDepth      int `mapstructure:"reads_depth" toml:"reads_depth"`
	LinkMinShared   int `mapstructure:"link_min_shared" toml:"link_min_shared"`
	MinNodeCoverage int `mapstructure:"min_node_coverage" toml:"min_node_coverage"`
}

// Server configures the anchor query service.
type Server struct {
	Addr          string        `mapstructure:"addr" toml:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout" toml:"query_timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent" toml:"max_concurrent"`
	CORSOrigin    string        `mapstructure:"cors_origin" toml:"cors_origin"`
}

// Config is the full parameter set.
type Config struct {
	Build  Build  `mapstructure:"build" toml:"build"`
	Match  Match  `mapstructure:"match" toml:"match"`
	Extend Extend `mapstructure:"extend" toml:"extend"`
	Report Report `mapstructure:"report" toml:"report"`
	Server Server `mapstructure:"server" toml:"server"`
}

// Default returns the parameters used when nothing is configured.
func Default() Config {
	return Config{
		Build: Build{
			MinAnchorLength:   61,
			MinNodesInAnchor:  2,
			MaxPathsInSnarl:   64,
			MaxNodesInSnarl:   1000,
			ReferencePathHint: "CHM13",
			ExtendBoundaries:  true,
			Workers:           runtime.NumCPU(),
		},
		Match: Match{
			MinMapQ:     60,
			MinCsLength: 6,
			Workers:     runtime.NumCPU(),
		},
		Extend: Extend{
			MinAnchorLength: 61,
			MinReadSupport:  3,
			DropFraction:    0.1,
			MinCoverage:     3,
			MinCommonReads:  2,
		},
		Report: Report{
			ReadsDepth:      3,
			LinkMinShared:   2,
			MinNodeCoverage: 5,
		},
		Server: Server{
			Addr:          ":8080",
			ReadTimeout:   5 * time.Second,
			WriteTimeout:  5 * time.Second,
			QueryTimeout:  5 * time.Second,
			MaxConcurrent: runtime.NumCPU() * 2,
		},
	}
}

// Validate rejects parameter combinations the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Build.MinNodesInAnchor < 2:
		return fmt.Errorf("build.min_nodes_in_anchor must be at least 2, got %d", c.Build.MinNodesInAnchor)
	case c.Build.MaxPathsInSnarl < 1:
		return fmt.Errorf("build.max_paths_in_snarl must be positive, got %d", c.Build.MaxPathsInSnarl)
	case c.Extend.DropFraction < 0 || c.Extend.DropFraction > 1:
		return fmt.Errorf("extend.drop_fraction must be in [0,1], got %g", c.Extend.DropFraction)
	case c.Extend.MinCoverage < 1:
		return fmt.Errorf("extend.min_coverage must be at least 1, got %d", c.Extend.MinCoverage)
	case c.Match.Workers < 1 || c.Build.Workers < 1:
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// Load reads a TOML parameter file over the defaults. Keys missing from
// the file keep their default values.
func Load(r io.Reader) (Config, error) {
	c := Default()
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode params: %w", err)
	}
	return c, nil
}

// LoadFile is Load on a file path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open params: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Write encodes the parameters as TOML.
func (c Config) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return nil
}

// WriteFile writes the parameters to path.
func (c Config) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create params: %w", err)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
