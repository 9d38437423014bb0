package main

import (
	"fmt"
	"os"
	"strings"

	"songpreview/internal/config"
)

// options are the command-line settings that are not part of the config file.
type options struct {
	configPath string
	keyword    string
}

// parseArgs parses command-line arguments and loads configuration.
// Priority: CLI flags > environment > config file > defaults
func parseArgs(args []string) (config.Config, options, error) {
	var opts options

	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			printUsage()
			os.Exit(0)
		}
		if arg == "--init-config" {
			return config.Config{}, opts, initConfigFile()
		}
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "--config" || args[i] == "-c" {
			if i+1 >= len(args) {
				return config.Config{}, opts, fmt.Errorf("--config requires a path argument")
			}
			opts.configPath = args[i+1]
			break
		}
	}

	cfg, err := config.LoadConfigFile(opts.configPath)
	if err != nil {
		return config.Config{}, opts, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.configPath == "" {
		opts.configPath = config.FindConfigFile()
	}
	if err := config.LoadEnv(&cfg); err != nil {
		return config.Config{}, opts, err
	}

	var words []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--verbose", "-v":
			cfg.Verbose = true

		case "--supersede":
			cfg.SupersedeStale = true

		case "--no-cache":
			cfg.Cache.DiskPath = ""

		case "--log-format":
			if i+1 >= len(args) {
				return config.Config{}, opts, fmt.Errorf("--log-format requires a format name")
			}
			i++
			cfg.LogFormat = args[i]

		case "--config", "-c":
			i++

		default:
			if len(arg) > 0 && arg[0] == '-' {
				return config.Config{}, opts, fmt.Errorf("unknown flag: %s", arg)
			}
			words = append(words, arg)
		}
	}
	opts.keyword = strings.Join(words, " ")

	return cfg, opts, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile() error {
	path := config.GetDefaultConfigPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file already exists at: %s\n", path)
		fmt.Println("Delete it first if you want to recreate it.")
		os.Exit(0)
	}

	cfg := config.DefaultConfig()

	if err := config.SaveConfigFile(cfg, path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Printf("Created default config file at: %s\n", path)
	fmt.Println("\nYou can now edit this file to customize your settings.")
	fmt.Println("Available options:")
	fmt.Println("  catalog_url: search endpoint (default: https://itunes.apple.com/search)")
	fmt.Println("  default_term / top_limit: landing list query (default: deftones, 15)")
	fmt.Println("  search_timeout: e.g. 30s")
	fmt.Println("  cache_top_songs: true/false (cache the landing list too)")
	fmt.Println("  supersede_stale: true/false (newest search always wins)")
	fmt.Println("  cache.memory_entries / cache.disk_entries / cache.disk_path")
	fmt.Println("  log_level: debug, info, warn, error")
	fmt.Println("  verbose: true/false (enable detailed logging)")

	os.Exit(0)
	return nil
}

// printUsage displays the help message
func printUsage() {
	fmt.Println("songpreview - Search the song catalog and listen to previews")
	fmt.Println()
	fmt.Println("Usage: songpreview [options] [keyword]")
	fmt.Println()
	fmt.Println("Without a keyword the last search is repeated, or the top songs are listed.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -v, --verbose              Show detailed output")
	fmt.Println("      --supersede            Cancel a pending search when a new one starts")
	fmt.Println("      --no-cache             Keep responses in memory only")
	fmt.Println("      --log-format <format>  Console log format: text or json")
	fmt.Println("  -c, --config <path>        Path to config file")
	fmt.Println("  -h, --help                 Show this help message")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  --init-config              Create a default config file")
	fmt.Println()
	fmt.Println("Config file locations (checked in order):")
	fmt.Println("  ./songpreview.yaml")
	fmt.Println("  ~/.config/songpreview/config.yaml")
	fmt.Println("  ~/.songpreview.yaml")
	fmt.Println()
	fmt.Println("Environment (also read from ./.env):")
	fmt.Println("  SONGPREVIEW_CATALOG_URL, SONGPREVIEW_DEFAULT_TERM, SONGPREVIEW_TOP_LIMIT,")
	fmt.Println("  SONGPREVIEW_LOG_LEVEL, SONGPREVIEW_CACHE_PATH")
	fmt.Println()
	fmt.Println("Playback needs a build with libmpv: go build -tags mpv ./cmd/songpreview")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  songpreview deftones")
	fmt.Println("  songpreview -v --supersede")
}
