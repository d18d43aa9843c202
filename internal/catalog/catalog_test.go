package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertmcp/internal/logging"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]Descriptor{
		{From: "docx", To: "pdf", Title: "Word to PDF", Tags: []string{"pdf", "office"}},
		{From: "pdf", To: "jpg", Title: "PDF to JPG", Tags: []string{"pdf", "image"}},
		{From: "pdf", To: "watermark", Title: "Add watermark", Summary: "Stamp pages", Tags: []string{"pdf", "security"},
			Parameters: []Parameter{{Name: "Opacity", Type: "integer", Description: "Watermark opacity"}}},
		{From: "png", To: "jpg", Title: "PNG to JPG", Tags: []string{"image"}},
	})
	require.NoError(t, err)
	return c
}

func pairs(ds []Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.From+">"+d.To)
	}
	return out
}

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 10)

	d, ok := c.Lookup("DOCX", "Pdf")
	require.True(t, ok)
	assert.Equal(t, "docx", d.From)
	assert.NotEmpty(t, d.Parameters)
}

func TestLookup(t *testing.T) {
	c := testCatalog(t)

	d, ok := c.Lookup(" docx ", "PDF")
	require.True(t, ok)
	assert.Equal(t, "Word to PDF", d.Title)

	_, ok = c.Lookup("docx", "mp3")
	assert.False(t, ok)
}

func TestByTagsRequiresAllTags(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, []string{"docx>pdf", "pdf>jpg", "pdf>watermark"}, pairs(c.ByTags([]string{"pdf"})))
	assert.Equal(t, []string{"pdf>jpg"}, pairs(c.ByTags([]string{"PDF", "image"})))
	assert.Empty(t, c.ByTags([]string{"pdf", "audio"}))
	assert.Empty(t, c.ByTags(nil))
	assert.Empty(t, c.ByTags([]string{" "}))
}

func TestSearchMatchesAnyTerm(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, []string{"pdf>watermark"}, pairs(c.Search([]string{"OPACITY"})))
	assert.Equal(t, []string{"pdf>jpg", "pdf>watermark", "png>jpg"}, pairs(c.Search([]string{"stamp", "jpg"})))
	assert.Empty(t, c.Search([]string{"flac"}))
	assert.Empty(t, c.Search(nil))
}

func TestResultsCannotMutateCatalog(t *testing.T) {
	c := testCatalog(t)

	d, ok := c.Lookup("pdf", "watermark")
	require.True(t, ok)
	d.Tags[0] = "mutated"
	d.Parameters[0].Name = "mutated"

	again, _ := c.Lookup("pdf", "watermark")
	assert.Equal(t, "pdf", again.Tags[0])
	assert.Equal(t, "Opacity", again.Parameters[0].Name)
}

func TestNewRejectsInvalidDescriptors(t *testing.T) {
	_, err := New([]Descriptor{{From: "docx"}})
	require.Error(t, err)

	_, err = New([]Descriptor{{From: "docx", To: "pdf"}, {From: "DOCX", To: "PDF"}})
	require.ErrorContains(t, err, "duplicate converter")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`converters:
  - from: odt
    to: pdf
    title: ODT to PDF
    tags: [pdf]
    parameters:
      - name: PageRange
        type: string
        min: 1
`), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	d, ok := c.Lookup("odt", "pdf")
	require.True(t, ok)
	require.NotNil(t, d.Parameters[0].Min)
	assert.Equal(t, 1.0, *d.Parameters[0].Min)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	c, err = LoadFile("  ")
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 0)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("converters:\n  - from: a\n    to: b\n    colour: red\n"))
	require.Error(t, err)
}

func TestLoadEmptyDocument(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestConcurrentReads(t *testing.T) {
	c := testCatalog(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Lookup("docx", "pdf")
			_ = c.ByTags([]string{"pdf"})
			_ = c.Search([]string{"jpg"})
		}()
	}
	wg.Wait()
}

func TestServiceMessages(t *testing.T) {
	svc := NewService(testCatalog(t), logging.Nop())

	info := svc.ConversionInfo("docx", "pdf")
	require.True(t, info.IsSuccess())
	assert.Equal(t, "Word to PDF", info.Converter.Title)

	info = svc.ConversionInfo("docx", "mp3")
	assert.False(t, info.IsSuccess())
	assert.False(t, info.MissingInput)
	assert.Equal(t, "Conversion path info could not be retrieved.", info.ErrorMessage)

	info = svc.ConversionInfo("", "pdf")
	assert.True(t, info.MissingInput)
	assert.Equal(t, "fromFormat is required.", info.ErrorMessage)

	list := svc.ConvertersByTags([]string{"audio"})
	assert.Equal(t, "No converters found for the specified tags.", list.ErrorMessage)

	list = svc.SearchConverters([]string{"flac"})
	assert.Equal(t, "No converters found for the specified search terms.", list.ErrorMessage)

	list = svc.SearchConverters(nil)
	assert.True(t, list.MissingInput)

	list = svc.ConvertersByTags([]string{"image"})
	require.True(t, list.IsSuccess())
	assert.Equal(t, []string{"pdf>jpg", "png>jpg"}, pairs(list.Converters))
}
