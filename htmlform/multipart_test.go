package htmlform_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/htmlform"
)

func TestParseMultipart_TwoFields(t *testing.T) {
	const boundary = "X-BOUNDARY"
	body := strings.Join([]string{
		"--" + boundary,
		`Content-Disposition: form-data; name="title"`,
		"",
		"hello world",
		"--" + boundary,
		`Content-Disposition: form-data; name="file"; filename="a.txt"`,
		"Content-Type: text/plain",
		"",
		"file contents here",
		"--" + boundary + "--",
	}, "\r\n")

	parts, err := htmlform.ParseMultipart(strings.NewReader(body), boundary)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, "title", parts[0].Name)
	assert.Equal(t, "hello world", string(parts[0].Content))

	assert.Equal(t, "file", parts[1].Name)
	assert.Equal(t, "a.txt", parts[1].Filename)
	assert.Equal(t, "text/plain", parts[1].ContentType)
	assert.Equal(t, "file contents here", string(parts[1].Content))
}

func TestParseMultipart_NoBoundaryInBodyReturnsEmpty(t *testing.T) {
	parts, err := htmlform.ParseMultipart(strings.NewReader("not a multipart body"), "X-BOUNDARY")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestParseMultipart_EmptyBoundaryReturnsEmpty(t *testing.T) {
	parts, err := htmlform.ParseMultipart(strings.NewReader("anything"), "")
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestParseMultipart_MalformedDispositionIsLenientNotFatal(t *testing.T) {
	const boundary = "B"
	body := strings.Join([]string{
		"--" + boundary,
		"Content-Disposition: garbage without key=value",
		"",
		"some content",
		"--" + boundary + "--",
	}, "\r\n")

	parts, err := htmlform.ParseMultipart(strings.NewReader(body), boundary)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "", parts[0].Name)
	assert.Equal(t, "some content", string(parts[0].Content))
}
