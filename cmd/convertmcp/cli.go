package main

import (
	"github.com/spf13/cobra"

	"convertmcp/internal/config"
	"convertmcp/internal/di"
	"convertmcp/internal/mcp"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "convertmcp",
		Short: "ConvertAPI file conversion over the Model Context Protocol",
		Long: `convertmcp exposes ConvertAPI file conversion as MCP tools.

Examples:
  convertmcp serve                              # MCP over stdio
  convertmcp serve --http 127.0.0.1:8765        # MCP over HTTP
  convertmcp convert docx pdf -f File=report.docx
  convertmcp catalog search watermark

Set CONVERTAPI_SECRET (or api_secret in convertmcp.yaml) before converting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Config file (default ./convertmcp.yaml or ~/.convertmcp/convertmcp.yaml)")
	pf.String("secret", "", "ConvertAPI secret")
	pf.String("base-url", "", "ConvertAPI endpoint")
	pf.String("catalog", "", "Converter catalog YAML replacing the built-in one")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")

	root.AddCommand(newServeCommand(flags))
	root.AddCommand(newConvertCommand(flags))
	root.AddCommand(newCatalogCommand(flags))
	root.AddCommand(newVersionCommand())
	return root
}

// loadConfig resolves configuration with cmd's flags on top.
func loadConfig(cmd *cobra.Command, flags *globalFlags, bindings map[string]string) (config.Config, error) {
	opts := []config.Option{config.WithConfigFile(flags.configFile)}
	all := map[string]string{
		"api_secret":     "secret",
		"base_url":       "base-url",
		"catalog_path":   "catalog",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}
	for key, name := range bindings {
		all[key] = name
	}
	for key, name := range all {
		opts = append(opts, config.WithFlag(key, cmd.Flags().Lookup(name)))
	}

	cfg, _, err := config.Load(opts...)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Tracing.ServiceVersion = appVersion()
	return cfg, nil
}

// buildContainer loads configuration and wires the services.
func buildContainer(cmd *cobra.Command, flags *globalFlags, bindings map[string]string, requireConverter bool) (*di.Container, error) {
	cfg, err := loadConfig(cmd, flags, bindings)
	if err != nil {
		return nil, err
	}
	return di.BuildContainer(cfg, di.Options{
		RequireConverter: requireConverter,
		ServerInfo:       mcp.ServerInfo{Name: "convertmcp", Version: appVersion()},
	})
}
