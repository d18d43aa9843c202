package catalog

import (
	"strings"

	"convertmcp/internal/logging"
)

const (
	msgPairNotFound  = "Conversion path info could not be retrieved."
	msgTagsNotFound  = "No converters found for the specified tags."
	msgTermsNotFound = "No converters found for the specified search terms."
	msgFromRequired  = "fromFormat is required."
	msgToRequired    = "toFormat is required."
	msgTagsRequired  = "tags are required."
	msgTermsRequired = "terms are required."
)

// InfoResult answers a pair lookup. ErrorMessage is empty on success;
// MissingInput marks failures caused by absent arguments rather than an
// unknown pair.
type InfoResult struct {
	Converter    *Descriptor `json:"Converter"`
	ErrorMessage string      `json:"ErrorMessage,omitempty"`
	MissingInput bool        `json:"-"`
}

// IsSuccess reports whether a converter was found.
func (r InfoResult) IsSuccess() bool { return r.ErrorMessage == "" }

// InfoListResult answers a tag or term query. ErrorMessage is empty on success.
type InfoListResult struct {
	Converters   []Descriptor `json:"Converters"`
	ErrorMessage string       `json:"ErrorMessage,omitempty"`
	MissingInput bool         `json:"-"`
}

// IsSuccess reports whether at least one converter matched.
func (r InfoListResult) IsSuccess() bool { return r.ErrorMessage == "" }

// Service answers discovery queries with human-readable failure messages.
type Service struct {
	catalog *Catalog
	logger  logging.Logger
}

// NewService wraps c. A nil logger falls back to the component logger.
func NewService(c *Catalog, logger logging.Logger) *Service {
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("CatalogService")
	}
	return &Service{catalog: c, logger: logger}
}

// Catalog returns the underlying catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// ConversionInfo looks up one conversion path.
func (s *Service) ConversionInfo(from, to string) InfoResult {
	if strings.TrimSpace(from) == "" {
		return InfoResult{ErrorMessage: msgFromRequired, MissingInput: true}
	}
	if strings.TrimSpace(to) == "" {
		return InfoResult{ErrorMessage: msgToRequired, MissingInput: true}
	}
	d, ok := s.catalog.Lookup(from, to)
	if !ok {
		s.logger.Error("Conversion path info could not be retrieved for %s to %s", from, to)
		return InfoResult{ErrorMessage: msgPairNotFound}
	}
	return InfoResult{Converter: &d}
}

// ConvertersByTags lists converters carrying every tag.
func (s *Service) ConvertersByTags(tags []string) InfoListResult {
	if len(normalizeTerms(tags)) == 0 {
		return InfoListResult{ErrorMessage: msgTagsRequired, MissingInput: true}
	}
	found := s.catalog.ByTags(tags)
	if len(found) == 0 {
		s.logger.Error("Failed to retrieve converters for tags: %v", tags)
		return InfoListResult{ErrorMessage: msgTagsNotFound}
	}
	return InfoListResult{Converters: found}
}

// SearchConverters lists converters matching any term.
func (s *Service) SearchConverters(terms []string) InfoListResult {
	if len(normalizeTerms(terms)) == 0 {
		return InfoListResult{ErrorMessage: msgTermsRequired, MissingInput: true}
	}
	found := s.catalog.Search(terms)
	if len(found) == 0 {
		s.logger.Error("No converters found for search terms: %v", terms)
		return InfoListResult{ErrorMessage: msgTermsNotFound}
	}
	return InfoListResult{Converters: found}
}
