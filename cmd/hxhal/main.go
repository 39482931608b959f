package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pthm/hxhal/lib/generator"
)

const version = "0.1.0"

const defaultConfig = "hxhal.yaml"

// config is the optional hxhal.yaml file. Flags override it.
type config struct {
	Patterns []string `yaml:"patterns"`
	DryRun   bool     `yaml:"dryRun"`
	Suffix   string   `yaml:"suffix"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "generate", "clean":
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync() //nolint:errcheck

		if err := run(cmd, args, log); err != nil {
			log.Error(cmd+" failed", zap.Error(err))
			log.Sync() //nolint:errcheck
			os.Exit(1)
		}
	case "version":
		fmt.Printf("hxhal version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hxhal - typed HAL resources for Go

Usage:
  hxhal <command> [arguments]

Commands:
  generate [packages]   Generate adapters for //hxhal:resource interfaces
  clean [packages]      Remove generated files (*_hal.go)
  version               Print version
  help                  Show this help

Options:
  --config <file>       Read settings from file (default: hxhal.yaml if present)
  --dry-run             Show what would be generated or removed without writing files

Examples:
  hxhal generate ./...                  Generate for all packages
  hxhal generate ./catalog              Generate for a specific package
  hxhal generate --dry-run ./...        Preview generation
  hxhal clean ./...                     Remove all generated files`)
}

func run(cmd string, args []string, log *zap.Logger) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	gen := generator.New(generator.Options{
		DryRun: cfg.DryRun,
		Suffix: cfg.Suffix,
		Logger: log,
	})
	if cmd == "clean" {
		return gen.Clean(cfg.Patterns...)
	}
	return gen.Generate(cfg.Patterns...)
}

// parseArgs merges the config file with the command line.
func parseArgs(args []string) (*config, error) {
	path := ""
	var dryRun bool
	var patterns []string

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--dry-run":
			dryRun = true
		case "--config":
			if i+1 >= len(args) {
				return nil, errors.New("--config needs a file")
			}
			i++
			path = args[i]
		default:
			patterns = append(patterns, arg)
		}
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.DryRun = true
	}
	if len(patterns) > 0 {
		cfg.Patterns = patterns
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"./..."}
	}
	return cfg, nil
}

// loadConfig reads path, or hxhal.yaml when path is empty. A missing
// default file is not an error.
func loadConfig(path string) (*config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfig
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
