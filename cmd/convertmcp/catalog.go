package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"convertmcp/internal/catalog"
	"convertmcp/internal/jsonx"
)

func newCatalogCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the converter catalog",
	}

	// run loads the catalog service and prints what query returns.
	run := func(query func(*catalog.Service) (any, string)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer(cmd, flags, nil, false)
			if err != nil {
				return err
			}
			defer container.Shutdown(cmd.Context())

			result, failure := query(container.Catalog)
			if failure != "" {
				return &ExitCodeError{Code: 2, Err: errors.New(failure)}
			}
			return printJSON(cmd.OutOrStdout(), result)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every converter",
		Args:  cobra.NoArgs,
		RunE: run(func(s *catalog.Service) (any, string) {
			return s.Catalog().All(), ""
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "pair <from> <to>",
		Short: "Show the parameters of one conversion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(s *catalog.Service) (any, string) {
				info := s.ConversionInfo(args[0], args[1])
				return info, info.ErrorMessage
			})(cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tags <tag>...",
		Short: "List converters carrying every tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(s *catalog.Service) (any, string) {
				list := s.ConvertersByTags(args)
				return list, list.ErrorMessage
			})(cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <term>...",
		Short: "Search converters by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(s *catalog.Service) (any, string) {
				list := s.SearchConverters(args)
				return list, list.ErrorMessage
			})(cmd, args)
		},
	})
	return cmd
}

func printJSON(w io.Writer, v any) error {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
