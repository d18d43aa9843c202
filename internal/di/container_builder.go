package di

import (
	"fmt"

	"convertmcp/internal/catalog"
	"convertmcp/internal/config"
	"convertmcp/internal/conversion"
	"convertmcp/internal/convertapi"
	"convertmcp/internal/logging"
	"convertmcp/internal/mcp"
	"convertmcp/internal/observability"
	"convertmcp/internal/tools"
)

type containerBuilder struct {
	config  config.Config
	options Options
	logger  logging.Logger
}

func newContainerBuilder(cfg config.Config, opts Options) *containerBuilder {
	if opts.ServerInfo.Name == "" {
		opts.ServerInfo.Name = "convertmcp"
	}
	if opts.ServerInfo.Version == "" {
		opts.ServerInfo.Version = cfg.Tracing.ServiceVersion
	}
	return &containerBuilder{config: cfg, options: opts}
}

func (b *containerBuilder) Build() (*Container, error) {
	if b.options.RequireConverter {
		if err := b.config.RequireSecret(); err != nil {
			return nil, err
		}
	}

	obs, err := observability.New(b.config.Config)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	logging.SetBase(obs.Logger)
	b.logger = logging.NewComponentLogger("DI")

	catalogService, err := b.buildCatalog()
	if err != nil {
		return nil, err
	}

	conversionService, err := b.buildConversion(obs)
	if err != nil {
		return nil, err
	}

	registry, err := b.buildToolRegistry(obs, catalogService, conversionService)
	if err != nil {
		return nil, err
	}

	server := mcp.NewServer(registry, b.options.ServerInfo,
		mcp.WithLogger(logging.NewComponentLogger("MCPServer")),
		mcp.WithTracer(obs.Tracer),
	)

	b.logger.Debug("Container built: %d converters, %d tools, conversion enabled=%t",
		catalogService.Catalog().Len(), len(registry.List()), conversionService != nil)

	return &Container{
		Config:        b.config,
		Observability: obs,
		Catalog:       catalogService,
		Conversion:    conversionService,
		Tools:         registry,
		Server:        server,
	}, nil
}

func (b *containerBuilder) buildCatalog() (*catalog.Service, error) {
	c, err := catalog.LoadFile(b.config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if b.config.CatalogPath != "" {
		b.logger.Info("Loaded %d converters from %s", c.Len(), b.config.CatalogPath)
	}
	return catalog.NewService(c, logging.NewComponentLogger("CatalogService")), nil
}

// buildConversion returns nil without a secret; the conversion tools are then
// not registered.
func (b *containerBuilder) buildConversion(obs *observability.Observability) (*conversion.Service, error) {
	if b.config.RequireSecret() != nil {
		b.logger.Warn("No ConvertAPI secret configured; conversion tools are disabled")
		return nil, nil
	}

	client, err := convertapi.NewClient(convertapi.Config{
		Secret:  b.config.APISecret,
		BaseURL: b.config.BaseURL,
		Timeout: b.config.RequestTimeout,
	}, convertapi.WithLogger(logging.NewComponentLogger("ConvertAPI")))
	if err != nil {
		return nil, err
	}

	downloadTimeout := b.config.DownloadTimeout
	maxBytes := b.config.MaxDownloadBytes
	downloaderLogger := logging.NewComponentLogger("Downloader")

	return conversion.NewService(client,
		conversion.WithDownloaderFactory(func() conversion.Downloader {
			return convertapi.NewDownloader(downloadTimeout, maxBytes, downloaderLogger)
		}),
		conversion.WithLogger(logging.NewComponentLogger("Conversion")),
		conversion.WithMetrics(obs.Metrics),
		conversion.WithTracer(obs.Tracer),
	), nil
}

func (b *containerBuilder) buildToolRegistry(obs *observability.Observability, catalogService *catalog.Service, conversionService *conversion.Service) (*tools.Registry, error) {
	registry := tools.NewRegistry(
		tools.WithRegistryLogger(logging.NewComponentLogger("ToolRegistry")),
		tools.WithRegistryMetrics(obs.Metrics),
		tools.WithRegistryTracer(obs.Tracer),
	)

	opts := tools.Options{
		Catalog: catalogService,
		Cache:   tools.DefaultCacheConfig(),
	}
	if conversionService != nil {
		opts.Converter = conversionService
	}
	if err := tools.RegisterDefaults(registry, opts); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return registry, nil
}
