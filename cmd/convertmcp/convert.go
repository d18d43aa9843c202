package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/cobra"

	"convertmcp/internal/conversion"
	"convertmcp/internal/envelope"
)

type convertOptions struct {
	params    []string
	files     []string
	outputDir string
	urls      bool
}

func newConvertCommand(flags *globalFlags) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <from> <to>",
		Short: "Run one conversion and print the result envelope",
		Long: `Run one conversion and print the result envelope as JSON on stdout.

Examples:
  convertmcp convert docx pdf -f File=report.docx
  convertmcp convert pdf jpg -f File=deck.pdf -p ImageResolution=300 -o ./images
  convertmcp convert web pdf -p Url=https://example.com --urls

--urls accepts only --param inputs such as a remote Url or a FileId.
Exits with status 2 when the conversion reports an error envelope.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.urls && len(opts.files) > 0 {
				return errors.New("--file uploads local files and cannot be combined with --urls; pass remote inputs with --param instead")
			}
			params, err := parsePairs(opts.params, "--param")
			if err != nil {
				return err
			}
			fileParams, err := parsePairs(opts.files, "--file")
			if err != nil {
				return err
			}

			container, err := buildContainer(cmd, flags, nil, true)
			if err != nil {
				return err
			}
			defer container.Shutdown(cmd.Context())

			var out envelope.Outcome
			if opts.urls {
				out = container.Conversion.ConvertToURLs(cmd.Context(), conversion.Request{
					SourceFormat: args[0],
					TargetFormat: args[1],
					Parameters:   params,
				})
			} else {
				dir := strings.TrimSpace(opts.outputDir)
				if dir == "" {
					dir = conversion.DefaultOutputDirectory(fileParams)
				}
				out = container.Conversion.ConvertToDirectory(cmd.Context(), conversion.DirectoryRequest{
					SourceFormat:    args[0],
					TargetFormat:    args[1],
					OutputDirectory: dir,
					Parameters:      params,
					FileParameters:  fileParams,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), out.JSON())
			printSummary(cmd.ErrOrStderr(), out, !opts.urls)
			if !out.OK() {
				return &ExitCodeError{Code: 2, Err: out.Failure}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Conversion parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "Local file to upload as key=path (repeatable)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Directory for downloaded results (default: converted_output next to the first file)")
	cmd.Flags().BoolVar(&opts.urls, "urls", false, "Keep results on ConvertAPI and print their URLs")
	return cmd
}

// parsePairs splits key=value arguments. Later keys win.
func parsePairs(pairs []string, flag string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s %q: want key=value", flag, pair)
		}
		out[key] = value
	}
	return out, nil
}

func printSummary(w io.Writer, out envelope.Outcome, local bool) {
	s := newStyler(w)
	if !out.OK() {
		fmt.Fprintf(w, "%s %s %s\n", s.failure("✗"), s.strong(string(out.Failure.Code)), out.Failure.Message)
		if out.Failure.Details != nil && *out.Failure.Details != "" {
			fmt.Fprintf(w, "  %s\n", s.muted(*out.Failure.Details))
		}
		return
	}

	fmt.Fprintf(w, "%s %d file(s)\n", s.success("✓"), len(out.Files))
	for _, file := range out.Files {
		line := "  " + s.accent(file)
		if local && strings.EqualFold(filepath.Ext(file), ".pdf") {
			if pages, err := pdfPageCount(file); err == nil {
				line += s.muted(fmt.Sprintf(" (%d pages)", pages))
			}
		}
		fmt.Fprintln(w, line)
	}
}

// pdfPageCount reads the page count of a saved PDF.
func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
