package invoice

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *Invoice {
	inv := &Invoice{
		Type:     TypeFactura,
		Series:   SeriesFor(TypeFactura),
		Number:   4512,
		IssuedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		OrderID:  uuid.New(),
		UserID:   uuid.New(),
		Currency: Currency,
		Issuer:   Issuer{RUC: "20123456789", Name: "Panadería San Antonio S.A.C.", Address: "Av. Principal 123"},
		Customer: Customer{DocumentType: DocumentRUC, DocumentNumber: "20601234567", Name: "Dulces Andinos S.A.C.", Verified: true},
		Lines: []Line{
			{Description: "Pan francés", Quantity: 10, UnitPrice: decimal.RequireFromString("0.50"), Subtotal: decimal.RequireFromString("5.00")},
			{Description: "Torta de chocolate", Quantity: 1, UnitPrice: decimal.RequireFromString("45.90"), Subtotal: decimal.RequireFromString("45.90")},
		},
	}
	inv.ComputeTotals()
	return inv
}

func TestInvoice_CodeAndSeries(t *testing.T) {
	inv := sampleInvoice()
	assert.Equal(t, "F001-004512", inv.Code())
	assert.Equal(t, "B001", SeriesFor(TypeBoleta))
	assert.Equal(t, "FACTURA ELECTRÓNICA", inv.Title())
}

func TestInvoice_ComputeTotalsWithZeroTax(t *testing.T) {
	inv := sampleInvoice()
	assert.True(t, decimal.RequireFromString("50.90").Equal(inv.Subtotal))
	assert.True(t, inv.Tax.IsZero())
	assert.True(t, inv.Total.Equal(inv.Subtotal))
}

func TestRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	inv := sampleInvoice()

	paths, err := NewRenderer(filepath.Join(dir, "nested")).Render(inv)
	require.NoError(t, err)

	pdf, err := os.ReadFile(paths.PDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	raw, err := os.ReadFile(paths.XML)
	require.NoError(t, err)
	var doc xmlInvoice
	require.NoError(t, xml.Unmarshal(raw, &doc))
	assert.Equal(t, "F001", doc.Series)
	assert.Equal(t, "004512", doc.Number)
	assert.Equal(t, "20601234567", doc.Customer.DocumentNumber)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Torta de chocolate", doc.Lines[1].Description)
	assert.Equal(t, "50.90", doc.Total)
	assert.Equal(t, "0.00", doc.Tax)

	f, err := os.Open(paths.PNG)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, pngWidth, img.Bounds().Dx())
}

func TestRenderer_RenderFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewRenderer(filepath.Join(blocker, "sub")).Render(sampleInvoice())
	assert.Error(t, err)
}
