package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Appointments",
		Headers: []string{"id", "date", "status"},
		Rows: []map[string]string{
			{"id": "a1", "date": "2024-05-01", "status": "booked"},
			{"id": "a2", "date": "2024-05-02", "status": "canceled, late"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "id,date,status\na1,2024-05-01,booked\na2,2024-05-02,\"canceled, late\"\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty, err := NewPDFExporter().Render(Dataset{Headers: []string{"a", "b", "c", "d", "e", "f"}})
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}
