package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agenda() Dataset {
	return Dataset{
		Title:   "Mentor agenda",
		Headers: []string{"start", "status"},
		Rows: []map[string]string{
			{"start": "2025-03-03T08:00:00Z", "status": "confirmed"},
			{"start": "2025-03-03T10:00:00Z", "status": "pending"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := Render(FormatCSV, agenda())
	require.NoError(t, err)
	assert.Equal(t, "start,status\n2025-03-03T08:00:00Z,confirmed\n2025-03-03T10:00:00Z,pending\n", string(out))
}

func TestPDFRender(t *testing.T) {
	out, err := Render(FormatPDF, agenda())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{})
	assert.Error(t, err)
	_, err = Render(FormatPDF, Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
