package export

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIMEMessageContainsHeadersAndAttachment(t *testing.T) {
	content := []byte("name,sku\nBord Alfa,12345\n")
	msg, err := buildMIMEMessage("sender@example.com", "buyer@example.com", "Export ready", "see attached", "catalog.csv", content)
	require.NoError(t, err)

	text := string(msg)
	assert.Contains(t, text, "From: sender@example.com")
	assert.Contains(t, text, "To: buyer@example.com")
	assert.Contains(t, text, "Subject: Export ready")
	assert.Contains(t, text, `filename="catalog.csv"`)
	assert.Contains(t, text, "Content-Transfer-Encoding: base64")
	assert.Contains(t, text, base64.StdEncoding.EncodeToString(content)[:20])
}

func TestBuildMIMEMessageDefaultsAppliedByCaller(t *testing.T) {
	msg, err := buildMIMEMessage("a@x.com", "b@x.com", "subj", "body text", "f.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "body text")
}

func TestEncodeBase64LinesWraps(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	out := encodeBase64Lines(data)
	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 76)
	}
	joined := strings.Join(lines, "")
	assert.Equal(t, base64.StdEncoding.EncodeToString(data), joined)
}
