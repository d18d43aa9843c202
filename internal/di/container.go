// Package di wires configuration into the running services.
package di

import (
	"context"

	"convertmcp/internal/catalog"
	"convertmcp/internal/config"
	"convertmcp/internal/conversion"
	"convertmcp/internal/mcp"
	"convertmcp/internal/observability"
	"convertmcp/internal/tools"
)

// Container holds all application dependencies.
type Container struct {
	Config        config.Config
	Observability *observability.Observability
	Catalog       *catalog.Service
	// Conversion is nil when the container was built without a converter.
	Conversion *conversion.Service
	Tools      *tools.Registry
	Server     *mcp.Server
}

// Options selects what BuildContainer wires.
type Options struct {
	// RequireConverter fails the build when no ConvertAPI secret is set.
	// Catalog-only commands leave it false.
	RequireConverter bool
	ServerInfo       mcp.ServerInfo
}

// BuildContainer builds the dependency injection container with the given configuration.
func BuildContainer(cfg config.Config, opts Options) (*Container, error) {
	return newContainerBuilder(cfg, opts).Build()
}

// Shutdown flushes telemetry.
func (c *Container) Shutdown(ctx context.Context) error {
	if c == nil || c.Observability == nil {
		return nil
	}
	return c.Observability.Shutdown(ctx)
}
