/*
Package main implements the item price lookup server and CLI application.

marketserve resolves free-text item names against a static catalog and
reports the cheapest current listings for the best match on every configured
game server. It runs as a MessagePack IPC server for chat bots and other
front ends, or as a CLI for trying lookups by hand.

# Usage

Start the server with default settings:

	marketserve

Use a custom catalog and enable debug mode:

	marketserve -catalog /path/to/items.csv -d

Run in CLI mode:

	marketserve -c -icons ./icon

# Catalog

The catalog is a CSV (or TSV) file with the columns id, name, isUntradable
and icon. Untradable rows are skipped. A missing or broken catalog is
logged and the program keeps running with nothing to search.

# Configuration

Runtime configuration lives in a TOML file that is created with defaults
if it does not exist:

	[server]
	request_timeout = "15s"
	max_query = 100

	[search]
	cache_file = "item_cache.json"
	fuzzy_limit = 50

	[market]
	base_url = "https://universalis.app/api/v2"
	cache_expiry = "60s"
	concurrency = 5

	[[servers]]
	id = 2075
	name = "카벙클"

A .env file and MARKETSERVE_* environment variables override selected
keys; flags override both.

# Command Line Flags

	-config string
	    Path to a config file
	-catalog string
	    Catalog file (overrides config)
	-cache string
	    Search cache file (overrides config)
	-icons string
	    Icon directory shown in CLI output
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/marketserve/internal/cli"
	"github.com/bastiangx/marketserve/internal/httpclient"
	"github.com/bastiangx/marketserve/internal/logger"
	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/config"
	"github.com/bastiangx/marketserve/pkg/lookup"
	"github.com/bastiangx/marketserve/pkg/market"
	"github.com/bastiangx/marketserve/pkg/resolve"
	"github.com/bastiangx/marketserve/pkg/searchcache"
	"github.com/bastiangx/marketserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "1.0.0"
	AppName = "marketserve"
	gh      = "https://github.com/bastiangx/marketserve"

	configFileName = "marketserve.toml"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires the packages together and picks server or CLI mode.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFlag := flag.String("config", "", "Path to a config file")
	catalogFlag := flag.String("catalog", "", "Catalog file (overrides config)")
	cacheFlag := flag.String("cache", "", "Search cache file (overrides config)")
	iconDir := flag.String("icons", "", "Icon directory shown in CLI output")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing lookups by hand")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debugf("Executable dir: %s, config dir: %s", pathResolver.GetExecutableDir(), pathResolver.GetConfigDir())

	defaultConfigPath, err := pathResolver.GetConfigPath(configFileName)
	if err != nil {
		log.Fatalf("Failed to determine config path: (%v)", err)
	}
	appConfig, configPath, err := config.LoadConfigWithPriority(*configFlag, defaultConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCloser, err := logger.Setup(logger.Options{
		Debug: *debugMode,
		Level: appConfig.Log.Level,
		File:  appConfig.Log.File,
	})
	if err != nil {
		log.Errorf("Logging to file disabled: %v", err)
	}
	defer logCloser.Close()

	if *catalogFlag != "" {
		appConfig.Catalog.Path = *catalogFlag
	}
	if *cacheFlag != "" {
		appConfig.Search.CacheFile = *cacheFlag
	}

	catalogPath := pathResolver.ResolveFile(appConfig.Catalog.Path)
	store := catalog.Load(catalogPath)

	cachePath := pathResolver.ResolveFile(appConfig.Search.CacheFile)
	resolver := resolve.NewResolver(store, searchcache.Open(cachePath), resolve.Options{
		FuzzyLimit:          appConfig.Search.FuzzyLimit,
		MinSimilarity:       appConfig.Search.MinSimilarity,
		SubstringSimilarity: appConfig.Search.SubstringSimilarity,
	})

	fetcher := market.NewFetcher(
		httpclient.WithTimeout(appConfig.Market.Timeout.Duration),
		appConfig.Market.BaseURL,
		market.NewCache(appConfig.Market.CacheExpiry.Duration),
	)
	aggregator := market.NewAggregator(fetcher, appConfig.Market.Concurrency)

	servers := make(market.Directory, len(appConfig.Servers))
	for i, ws := range appConfig.Servers {
		servers[i] = market.Server{ID: ws.ID, Name: ws.Name}
	}
	service := lookup.New(resolver, aggregator, servers, appConfig.Search.AlternativesMaxLen)

	ctx := context.Background()

	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(service, cli.Options{
			Timeout:       appConfig.Server.RequestTimeout.Duration,
			MaxQuery:      appConfig.Server.MaxQuery,
			CompleteLimit: appConfig.Server.CompleteLimit,
			IconDir:       *iconDir,
		})
		if err := inputHandler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(service, server.Options{
		RequestTimeout: appConfig.Server.RequestTimeout.Duration,
		MaxQuery:       appConfig.Server.MaxQuery,
		CompleteLimit:  appConfig.Server.CompleteLimit,
	})

	showStartupInfo(configPath, catalogPath, cachePath, store.Len(), len(servers))

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func printVersion() {
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

	banner := logger.NewWithConfig(os.Stderr, "", log.InfoLevel, false, false, log.TextFormatter)
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ marketserve ] Item prices across every server")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(configPath, catalogPath, cachePath string, items, servers int) {
	info := logger.New(AppName)
	info.SetLevel(log.InfoLevel)

	info.Infof("Version: %s", Version)
	info.Infof("Process ID: [ %d ]", os.Getpid())
	info.Infof("config: ( %s )", utils.GetAbsolutePath(configPath))
	info.Infof("catalog: ( %s ) %d items", utils.GetAbsolutePath(catalogPath), items)
	info.Infof("search cache: ( %s )", utils.GetAbsolutePath(cachePath))
	info.Infof("servers: %d", servers)
	info.Info("status: ready")
}
