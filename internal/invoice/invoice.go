// Package invoice renders sales documents (boleta / factura) to PDF, XML and
// PNG and keeps the JSON ledger of emitted documents.
package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeBoleta  = "boleta"
	TypeFactura = "factura"

	DocumentDNI = "DNI"
	DocumentRUC = "RUC"

	Currency = "PEN"
)

// TaxRate is applied to every document. Prices already include any tax.
var TaxRate = decimal.Zero

// SeriesFor returns the document series for an invoice type.
func SeriesFor(invoiceType string) string {
	if invoiceType == TypeFactura {
		return "F001"
	}
	return "B001"
}

type Issuer struct {
	RUC     string `json:"ruc"`
	Name    string `json:"razon_social"`
	Address string `json:"direccion"`
}

type Customer struct {
	DocumentType   string `json:"tipo_documento"`
	DocumentNumber string `json:"numero_documento"`
	Name           string `json:"nombre"`
	Address        string `json:"direccion,omitempty"`
	Verified       bool   `json:"verificado"`
}

type Line struct {
	Description string          `json:"descripcion"`
	Quantity    int             `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Invoice struct {
	Type     string          `json:"tipo"`
	Series   string          `json:"serie"`
	Number   int             `json:"numero"`
	IssuedAt time.Time       `json:"fecha_emision"`
	OrderID  uuid.UUID       `json:"pedido_id"`
	UserID   uuid.UUID       `json:"usuario_id"`
	Currency string          `json:"moneda"`
	Issuer   Issuer          `json:"emisor"`
	Customer Customer        `json:"cliente"`
	Lines    []Line          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"igv"`
	Total    decimal.Decimal `json:"total"`
}

// Code is the printable identifier, e.g. B001-004512.
func (inv *Invoice) Code() string {
	return fmt.Sprintf("%s-%06d", inv.Series, inv.Number)
}

// Title is the heading printed on every rendering.
func (inv *Invoice) Title() string {
	if inv.Type == TypeFactura {
		return "FACTURA ELECTRÓNICA"
	}
	return "BOLETA DE VENTA ELECTRÓNICA"
}

// ComputeTotals fills Subtotal, Tax and Total from the lines.
func (inv *Invoice) ComputeTotals() {
	subtotal := decimal.Zero
	for _, l := range inv.Lines {
		subtotal = subtotal.Add(l.Subtotal)
	}
	inv.Subtotal = subtotal
	inv.Tax = subtotal.Mul(TaxRate).Round(2)
	inv.Total = inv.Subtotal.Add(inv.Tax)
}

type Files struct {
	PDF string `json:"pdf"`
	XML string `json:"xml"`
	PNG string `json:"png"`
}

// Record is one ledger entry.
type Record struct {
	Invoice Invoice `json:"invoice"`
	Files   Files   `json:"files"`
}
