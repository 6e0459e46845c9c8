package labelsheet

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
)

func sampleLabels(n int) []domain.Label {
	out := make([]domain.Label, n)
	for i := range out {
		out[i] = domain.Label{
			ID:      fmt.Sprintf("l-%03d", i),
			BatchID: "b-1",
			Code:    fmt.Sprintf("LWS-7d4c1a52-9a0b-4b8e-a5c2-1f0e3d2c%04d", i),
			Status:  domain.LabelAvailable,
		}
	}
	return out
}

var variant = domain.VariantSummary{
	ProductName: "Bateria Moura 60Ah",
	SKU:         "M60GD",
	Attribute:   "Polaridade",
	Value:       "Direita",
}

func TestBuild_PaginatesGrid(t *testing.T) {
	pdf, err := build(domain.LabelBatch{ID: "b-1"}, variant, sampleLabels(PerPage+1))
	require.NoError(t, err)
	assert.Equal(t, 2, pdf.PageCount())

	pdf, err = build(domain.LabelBatch{ID: "b-1"}, variant, sampleLabels(PerPage))
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.PageCount())
}

func TestRender_WritesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, domain.LabelBatch{ID: "b-1"}, variant, sampleLabels(3)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRender_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, domain.LabelBatch{ID: "b-1"}, variant, nil))
	assert.Zero(t, buf.Len())
}

func TestShortCodeAndPages(t *testing.T) {
	assert.Equal(t, "1F0E3D2C", ShortCode("LWS-7d4c1a52-9a0b-4b8e-a5c2-00001f0e3d2c"))
	assert.Equal(t, "ABC", ShortCode("LWS-abc"))

	assert.Equal(t, 0, Pages(0))
	assert.Equal(t, 1, Pages(24))
	assert.Equal(t, 2, Pages(25))
	assert.Equal(t, 42, Pages(domain.MaxBatchQuantity))
}
