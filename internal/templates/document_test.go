package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	doc := ParseDocument("cfg", "a\r\n#{B}\n\n#{C} trailing\n#{B}\n")

	assert.Equal(t, "cfg", doc.Name())
	assert.Equal(t, 5, doc.Len())
	assert.Equal(t, []string{"a\r", "#{B}", "", "#{C} trailing", "#{B}"}, doc.Lines())
	assert.Equal(t, []string{"#{B}", "#{C}"}, doc.Tags())
}

func TestParseDocument_Empty(t *testing.T) {
	assert.Equal(t, 0, ParseDocument("empty", "").Len())
	assert.Equal(t, []string{""}, ParseDocument("blank", "\n").Lines())
}

func TestDocument_LinesIsCopy(t *testing.T) {
	doc := ParseDocument("cfg", "#{A}")
	lines := doc.Lines()
	lines[0] = "changed"
	assert.Equal(t, []string{"#{A}"}, doc.Lines())
}

func TestFindTag(t *testing.T) {
	tok, ok := FindTag("  #{BAUDRATE} // serial")
	require.True(t, ok)
	assert.Equal(t, "#{BAUDRATE}", tok)

	_, ok = FindTag("#define BAUDRATE 250000")
	assert.False(t, ok)
	_, ok = FindTag("#{ spaced }")
	assert.False(t, ok)
	assert.Equal(t, "#{X}", Tag("X"))
}

func TestLoadDocument(t *testing.T) {
	fsys := fstest.MapFS{"t/cfg.h.tmpl": {Data: []byte("#{A}\nplain\n")}}

	doc, err := LoadDocument(fsys, "t/cfg.h.tmpl")
	require.NoError(t, err)
	assert.Equal(t, []string{"#{A}", "plain"}, doc.Lines())

	_, err = LoadDocument(fsys, "missing")
	require.Error(t, err)
}
