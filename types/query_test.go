package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatParamsValidation(t *testing.T) {
	assert.Nil(t, Validate(&ChatParams{Question: "hi"}))

	errs := Validate(&ChatParams{})
	require.NotNil(t, errs)
	assert.Contains(t, errs, "Question")
}

func TestSourceParamsValidation(t *testing.T) {
	valid := &SourceParams{Sources: []SourceInput{{Kind: "file", Path: "/docs/a.txt"}}}
	assert.Nil(t, Validate(valid))

	assert.NotNil(t, Validate(&SourceParams{}), "empty source list must fail")

	badKind := &SourceParams{Sources: []SourceInput{{Kind: "s3", Path: "/docs/a.txt"}}}
	errs := Validate(badKind)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "Kind")
}

func TestRetrieverParamsValidation(t *testing.T) {
	assert.Nil(t, Validate(&RetrieverParams{EmbeddingsModel: "m"}))
	assert.Contains(t, Validate(&RetrieverParams{}), "EmbeddingsModel")
}

func TestPromptParamsValidation(t *testing.T) {
	assert.Nil(t, Validate(&PromptParams{SystemPrompt: "be nice"}))
	assert.Contains(t, Validate(&PromptParams{}), "SystemPrompt")
}

func TestSourceInputDescriptor(t *testing.T) {
	file := SourceInput{Kind: "file", Path: "/docs/a.pdf"}
	assert.Equal(t, FileSource("/docs/a.pdf"), file.Descriptor())

	u := SourceInput{Kind: "url", URL: "https://example.com"}
	assert.Equal(t, URLSource("https://example.com"), u.Descriptor())

	c := SourceInput{
		Kind: "confluence", BaseURL: "https://wiki.example.com",
		Username: "bot", APIKey: "k", SpaceKey: "DOCS", PageLimit: 10,
	}
	d := c.Descriptor()
	assert.Equal(t, SourceConfluence, d.Kind)
	assert.Equal(t, "DOCS", d.SpaceKey)
}

func TestSourceDescriptorKey(t *testing.T) {
	assert.Equal(t, "file:/docs/a.txt", FileSource("/docs/a.txt").Key())
	assert.Equal(t, "url:https://example.com", URLSource("https://example.com").Key())
	assert.Equal(t, "confluence:https://wiki.example.com/DOCS",
		ConfluenceSource("https://wiki.example.com/", "u", "k", "DOCS", 5).Key())
}
