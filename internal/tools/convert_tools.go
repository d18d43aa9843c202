package tools

import (
	"context"
	"strings"

	"convertmcp/internal/conversion"
	"convertmcp/internal/envelope"
)

const (
	ToolConvert       = "convert"
	ToolConvertToURLs = "convert_to_urls"
)

// Converter runs conversions.
type Converter interface {
	ConvertToURLs(ctx context.Context, req conversion.Request) envelope.Outcome
	ConvertToDirectory(ctx context.Context, req conversion.DirectoryRequest) envelope.Outcome
}

const convertDescription = `Convert files with ConvertAPI and save the results locally.

RECOMMENDED WORKFLOW:
1. Call 'get_conversion_parameters' to discover supported parameters for your fromFormat->toFormat conversion
2. Review the available parameters, their types, constraints, and descriptions
3. Call this 'convert' tool with your chosen parameters

REQUIRED PARAMETERS:
- fromFormat: Source format (e.g., 'docx', 'xlsx', 'jpg')
- toFormat: Target format (e.g., 'pdf', 'png', 'html')

Local input files go in fileParameters (e.g., {"File": "/path/report.docx"}). When outputDirectory is omitted, results are saved to a 'converted_output' folder next to the first input file, or in the working directory.

EXAMPLE USAGE:
First check: get_conversion_parameters(fromFormat='pdf', toFormat='jpg')
Then convert: convert(fromFormat='pdf', toFormat='jpg', parameters={'PageRange':'1-3', 'ImageResolution':'300'}, fileParameters={'File':'/tmp/in.pdf'})`

const convertToURLsDescription = `Convert with ConvertAPI and return the download URLs of the result files without saving them locally.

Use this for inputs the service can fetch itself (e.g., parameters={'Url':'https://example.com'}) or when the caller only needs links.`

var parametersProperty = Property{
	Type:                 "object",
	Description:          "Conversion parameters. Values may be strings, numbers, booleans, arrays or objects; they are sent as strings.",
	AdditionalProperties: &Property{},
}

type convertTool struct {
	converter Converter
}

// NewConvertTool converts and saves results to a local directory.
func NewConvertTool(c Converter) Tool {
	return &convertTool{converter: c}
}

func (t *convertTool) Definition() Definition {
	return Definition{
		Name:        ToolConvert,
		Description: convertDescription,
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"fromFormat": fromFormatProperty,
				"toFormat":   toFormatProperty,
				"parameters": parametersProperty,
				"fileParameters": {
					Type:                 "object",
					Description:          "Files to convert: parameter name mapped to a local file path.",
					AdditionalProperties: &Property{Type: "string"},
				},
				"outputDirectory": {
					Type:        "string",
					Description: "Specify directory where files to be converted will be stored",
				},
			},
			Required: []string{"fromFormat", "toFormat"},
		},
	}
}

func (t *convertTool) ReadOnly() bool { return false }

func (t *convertTool) Execute(ctx context.Context, args Arguments) Result {
	from, to, failed := formats(args)
	if failed != nil {
		return *failed
	}
	parameters, err := args.Parameters("parameters")
	if err != nil {
		return invalidArgument(err)
	}
	fileParameters, err := args.Parameters("fileParameters")
	if err != nil {
		return invalidArgument(err)
	}
	outputDirectory, err := args.String("outputDirectory")
	if err != nil {
		return invalidArgument(err)
	}
	if strings.TrimSpace(outputDirectory) == "" {
		outputDirectory = conversion.DefaultOutputDirectory(fileParameters)
	}

	return outcomeResult(t.converter.ConvertToDirectory(ctx, conversion.DirectoryRequest{
		SourceFormat:    from,
		TargetFormat:    to,
		OutputDirectory: outputDirectory,
		Parameters:      parameters,
		FileParameters:  fileParameters,
	}))
}

type convertToURLsTool struct {
	converter Converter
}

// NewConvertToURLsTool converts and returns remote result locations.
func NewConvertToURLsTool(c Converter) Tool {
	return &convertToURLsTool{converter: c}
}

func (t *convertToURLsTool) Definition() Definition {
	return Definition{
		Name:        ToolConvertToURLs,
		Description: convertToURLsDescription,
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"fromFormat": fromFormatProperty,
				"toFormat":   toFormatProperty,
				"parameters": parametersProperty,
			},
			Required: []string{"fromFormat", "toFormat"},
		},
	}
}

func (t *convertToURLsTool) ReadOnly() bool { return false }

func (t *convertToURLsTool) Execute(ctx context.Context, args Arguments) Result {
	from, to, failed := formats(args)
	if failed != nil {
		return *failed
	}
	parameters, err := args.Parameters("parameters")
	if err != nil {
		return invalidArgument(err)
	}
	return outcomeResult(t.converter.ConvertToURLs(ctx, conversion.Request{
		SourceFormat: from,
		TargetFormat: to,
		Parameters:   parameters,
	}))
}

func formats(args Arguments) (string, string, *Result) {
	from, err := args.String("fromFormat")
	if err != nil {
		r := invalidArgument(err)
		return "", "", &r
	}
	to, err := args.String("toFormat")
	if err != nil {
		r := invalidArgument(err)
		return "", "", &r
	}
	if strings.TrimSpace(from) == "" {
		r := failure("fromFormat is required (e.g., 'docx', 'xlsx', 'jpg').", envelope.CodeInvalidArgument)
		return "", "", &r
	}
	if strings.TrimSpace(to) == "" {
		r := failure("toFormat is required (e.g., 'pdf', 'png', 'html').", envelope.CodeInvalidArgument)
		return "", "", &r
	}
	return from, to, nil
}

func outcomeResult(out envelope.Outcome) Result {
	return textResult(out.JSON(), !out.OK())
}

// Options wires the default tool set.
type Options struct {
	Catalog   Catalog
	Converter Converter
	Cache     CacheConfig
}

// RegisterDefaults registers the discovery tools and, when a converter is
// available, the conversion tools. Discovery results are cached.
func RegisterDefaults(r *Registry, opts Options) error {
	var set []Tool
	if opts.Catalog != nil {
		set = append(set,
			WithCache(NewConversionParametersTool(opts.Catalog), opts.Cache),
			WithCache(NewConvertersByTagsTool(opts.Catalog), opts.Cache),
			WithCache(NewSearchConvertersTool(opts.Catalog), opts.Cache),
		)
	}
	if opts.Converter != nil {
		set = append(set, NewConvertTool(opts.Converter), NewConvertToURLsTool(opts.Converter))
	}
	for _, tool := range set {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
