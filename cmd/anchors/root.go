package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/base/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/config"
	"snarl_anchors/pkg/fileio"
	"snarl_anchors/pkg/graph"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Find unique anchor paths in a pangenome graph and assign long reads to them",
	Long: `anchors derives candidate anchors from the leaf snarls of a variation graph,
matches GAF alignments against them and extends short anchors using the reads.

Typical run:
  anchors pack --gfa graph.gfa.gz --snarls snarls.json --output graph.bin
  anchors build --graph graph.bin --out run/
  anchors align --graph graph.bin --dict run/anchors.dict --gaf reads.gaf.gz --out run/
  anchors extend --graph graph.bin --dict run/matched.dict --out run/`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("config")
		if path == "" {
			return nil
		}
		viper.SetConfigFile(path)
		viper.SetConfigType("toml")
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		log.Printf("Using parameters from %s", path)
		return nil
	},
	SilenceUsage: true,
}

// defaults supplies the flag defaults; viper.Unmarshal starts from the
// same values.
var defaults = config.Default()

func init() {
	rootCmd.PersistentFlags().String("config", "", "TOML parameter file, e.g. a params.toml of an earlier run")
	rootCmd.PersistentFlags().StringP("out", "o", ".", "output directory")
	bind("config", rootCmd.PersistentFlags().Lookup("config"))
	bind("out", rootCmd.PersistentFlags().Lookup("out"))

	rootCmd.AddCommand(packCmd, buildCmd, alignCmd, extendCmd, verifyCmd, coverageCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// bind ties a flag to a viper key. Keys match the toml keys of
// config.Config, so a flag overrides the same setting in --config.
func bind(key string, f *pflag.Flag) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// loadConfig merges defaults, the --config file and the flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode parameters: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// outDir creates the output directory and writes params.toml into it.
func outDir(cfg config.Config) (string, error) {
	dir := viper.GetString("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := cfg.WriteFile(filepath.Join(dir, "params.toml")); err != nil {
		return "", err
	}
	return dir, nil
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	w, err := fileio.Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Close()
}

func loadGraph(path string) *graph.Graph {
	t := time.Now()
	log.Printf("Loading graph from %s...", path)
	g, err := graph.ReadBinary(path)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d edges, %d paths, %d snarls (%s)",
		g.NumNodes, g.NumEdges, g.NumPaths(), len(g.Snarls), time.Since(t).Round(time.Millisecond))
	return g
}

func loadDictionary(path string, g *graph.Graph) *anchor.Dictionary {
	t := time.Now()
	log.Printf("Loading dictionary from %s...", path)
	dict, err := anchor.ReadDictionaryFile(path, g.Fingerprint())
	if err != nil {
		log.Fatalf("Failed to load dictionary: %v", err)
	}
	log.Printf("Loaded: %d anchors under %d sentinels (%s)",
		dict.Len(), len(dict.Sentinels()), time.Since(t).Round(time.Millisecond))
	return dict
}
