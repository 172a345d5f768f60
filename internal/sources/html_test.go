package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntities(t *testing.T) {
	in := "a &#40;b&#41; &#91;c&#93; &amp; d &#123;e&#125;"
	assert.Equal(t, "a (b) [c] & d {e}", DecodeEntities(in))
}

func TestDecodeEntitiesLeavesOtherReferencesAlone(t *testing.T) {
	// Only the known over-escaped set is decoded.
	assert.Equal(t, "&#8212; &lt;", DecodeEntities("&#8212; &lt;"))
}

func TestExtractText(t *testing.T) {
	raw := `<html><head><style>p{color:red}</style><script>var x=1</script></head>
	<body><h1>Title</h1><p>First <b>bold</b> line.</p></body></html>`

	text, err := extractText(raw)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "First")
	assert.Contains(t, text, "bold")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "var x=1")
}

func TestFormatHTML(t *testing.T) {
	raw := "<h1>Hello</h1><p>World</p>"

	t.Run("markdown is the default", func(t *testing.T) {
		md, err := FormatHTML(raw, "")
		require.NoError(t, err)
		assert.Contains(t, md, "Hello")
		assert.NotContains(t, md, "<h1>")
	})

	t.Run("text strips markup", func(t *testing.T) {
		text, err := FormatHTML(raw, "text")
		require.NoError(t, err)
		assert.Contains(t, text, "Hello")
		assert.NotContains(t, text, "<")
	})

	t.Run("html passes through", func(t *testing.T) {
		out, err := FormatHTML(raw, "html")
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("unknown format fails", func(t *testing.T) {
		_, err := FormatHTML(raw, "pdf")
		require.Error(t, err)
	})
}
