package tools

import (
	"context"
	"strings"

	"convertmcp/internal/catalog"
	"convertmcp/internal/envelope"
	"convertmcp/internal/jsonx"
)

const (
	ToolGetConversionParameters = "get_conversion_parameters"
	ToolGetConvertersByTags     = "get_converters_by_tags"
	ToolSearchConverters        = "search_converters"
)

// Catalog answers discovery queries.
type Catalog interface {
	ConversionInfo(from, to string) catalog.InfoResult
	ConvertersByTags(tags []string) catalog.InfoListResult
	SearchConverters(terms []string) catalog.InfoListResult
}

var (
	fromFormatProperty = Property{Type: "string", Description: "From format (e.g., 'docx', 'xlsx', 'jpg')"}
	toFormatProperty   = Property{Type: "string", Description: "To format (e.g., 'pdf', 'png', 'html')"}
	stringItems        = &Property{Type: "string"}
)

const conversionParametersDescription = `Get all available parameters with their descriptions and constraints for a specific conversion.

CALL THIS FIRST before using the 'convert' tool to understand which parameters are supported and their requirements.

Returns parameter names, data types, allowed values and constraints, descriptions, and whether each parameter is required.`

type conversionParametersTool struct {
	catalog Catalog
}

// NewConversionParametersTool describes the parameters of one conversion.
func NewConversionParametersTool(c Catalog) Tool {
	return &conversionParametersTool{catalog: c}
}

func (t *conversionParametersTool) Definition() Definition {
	return Definition{
		Name:        ToolGetConversionParameters,
		Description: conversionParametersDescription,
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"fromFormat": fromFormatProperty,
				"toFormat":   toFormatProperty,
			},
			Required: []string{"fromFormat", "toFormat"},
		},
	}
}

func (t *conversionParametersTool) ReadOnly() bool { return true }

func (t *conversionParametersTool) Execute(_ context.Context, args Arguments) Result {
	from, err := args.String("fromFormat")
	if err != nil {
		return invalidArgument(err)
	}
	to, err := args.String("toFormat")
	if err != nil {
		return invalidArgument(err)
	}
	if strings.TrimSpace(from) == "" {
		return failure("fromFormat is required.", envelope.CodeInvalidArgument)
	}
	if strings.TrimSpace(to) == "" {
		return failure("toFormat is required.", envelope.CodeInvalidArgument)
	}

	info := t.catalog.ConversionInfo(from, to)
	if !info.IsSuccess() {
		return catalogFailure(info.ErrorMessage, info.MissingInput)
	}
	return jsonResult(info)
}

type convertersByTagsTool struct {
	catalog Catalog
}

// NewConvertersByTagsTool lists converters carrying every requested tag.
func NewConvertersByTagsTool(c Catalog) Tool {
	return &convertersByTagsTool{catalog: c}
}

func (t *convertersByTagsTool) Definition() Definition {
	return Definition{
		Name:        ToolGetConvertersByTags,
		Description: "Retrieves a list of available converters that match the specified tags.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"tags": {
					Type:        "array",
					Description: `A list of tags used to filter the available converters. Only converters associated with all specified tags are returned. For example: ["pdf"]`,
					Items:       stringItems,
				},
			},
			Required: []string{"tags"},
		},
	}
}

func (t *convertersByTagsTool) ReadOnly() bool { return true }

func (t *convertersByTagsTool) Execute(_ context.Context, args Arguments) Result {
	tags, err := args.StringList("tags")
	if err != nil {
		return invalidArgument(err)
	}
	list := t.catalog.ConvertersByTags(tags)
	if !list.IsSuccess() {
		return catalogFailure(list.ErrorMessage, list.MissingInput)
	}
	return jsonResult(list)
}

type searchConvertersTool struct {
	catalog Catalog
}

// NewSearchConvertersTool lists converters matching any search term.
func NewSearchConvertersTool(c Catalog) Tool {
	return &searchConvertersTool{catalog: c}
}

func (t *searchConvertersTool) Definition() Definition {
	return Definition{
		Name:        ToolSearchConverters,
		Description: "Searches for available converters that match the specified search terms.",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"terms": {
					Type:        "array",
					Description: `A list of search terms used to filter the available converters. Each term is matched against converter metadata. For example: ["watermark", "pdf"]`,
					Items:       stringItems,
				},
			},
			Required: []string{"terms"},
		},
	}
}

func (t *searchConvertersTool) ReadOnly() bool { return true }

func (t *searchConvertersTool) Execute(_ context.Context, args Arguments) Result {
	terms, err := args.StringList("terms")
	if err != nil {
		return invalidArgument(err)
	}
	list := t.catalog.SearchConverters(terms)
	if !list.IsSuccess() {
		return catalogFailure(list.ErrorMessage, list.MissingInput)
	}
	return jsonResult(list)
}

// catalogFailure renders a descriptive catalog message through the failure
// envelope: missing input is INVALID_ARGUMENT, no match is OPERATION_FAILED.
func catalogFailure(message string, missingInput bool) Result {
	code := envelope.CodeOperationFailed
	if missingInput {
		code = envelope.CodeInvalidArgument
	}
	return failure(message, code)
}

func failure(message string, code envelope.ErrorCode, details ...string) Result {
	return textResult(envelope.BuildError(message, code, details...), true)
}

func invalidArgument(err error) Result {
	return failure("Invalid tool arguments.", envelope.CodeInvalidArgument, err.Error())
}

func jsonResult(v any) Result {
	data, err := jsonx.MarshalIndent(v, "", "  ")
	if err != nil {
		return failure("Failed to render result.", envelope.CodeOperationFailed, err.Error())
	}
	return textResult(string(data), false)
}
