package cli

import (
	"fmt"

	"github.com/glorpus-work/scidd/internal/logger"
	"github.com/glorpus-work/scidd/pkg/astro"
	"github.com/glorpus-work/scidd/pkg/cache"
	"github.com/glorpus-work/scidd/pkg/config"
	"github.com/glorpus-work/scidd/pkg/download"
	"github.com/glorpus-work/scidd/pkg/resolver"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the configuration from the --config flag or the default
// location and initializes logging from it.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		path = defaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level)
	return cfg, nil
}

// loadConfigAndManager loads the configuration, builds the cache manager and
// wires the astro resolver to the configured endpoint and response cache.
func loadConfigAndManager() (*config.Config, *cache.DefaultManager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to determine cache dir: %w", err)
	}

	dl := download.NewManager(cfg.Settings.DownloadTimeout, "")
	manager, err := cache.NewManager(dir, dl, cfg.DecompressDownloads())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache manager: %w", err)
	}

	host, port := cfg.APIEndpoint()
	r := astro.NewResolver(resolver.NewAPIClient(host, port, cfg.API.Timeout))
	if responses, err := manager.Responses(); err == nil {
		r.SetResponseStore(responses)
	}
	astro.SetDefaultResolver(r)

	return cfg, manager, nil
}
