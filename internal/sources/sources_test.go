package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/template"
)

func TestNewLiveWithoutEndpoint(t *testing.T) {
	live := NewLive("")
	require.Nil(t, live.Browser)

	_, err := live.BrowserContent(template.BrowserQuery{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewLiveWithEndpoint(t *testing.T) {
	live := NewLive("127.0.0.1:9222")
	assert.NotNil(t, live.Browser)
}
