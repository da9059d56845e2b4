package invoice

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
)

// Paths lists the local files produced for one invoice.
type Paths struct {
	PDF string
	XML string
	PNG string
}

func (p Paths) All() []string {
	return []string{p.PDF, p.XML, p.PNG}
}

// Renderer writes the three representations of an invoice into Dir.
type Renderer struct {
	Dir string
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{Dir: dir}
}

// Render produces PDF, XML and PNG files. On failure every file written so far
// is removed.
func (r *Renderer) Render(inv *Invoice) (Paths, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create temp dir: %w", err)
	}

	base := filepath.Join(r.Dir, inv.Code())
	paths := Paths{PDF: base + ".pdf", XML: base + ".xml", PNG: base + ".png"}

	steps := []struct {
		name string
		fn   func(*Invoice, string) error
		path string
	}{
		{"pdf", writePDF, paths.PDF},
		{"xml", writeXML, paths.XML},
		{"png", writePNG, paths.PNG},
	}
	for i, step := range steps {
		if err := step.fn(inv, step.path); err != nil {
			for _, done := range steps[:i+1] {
				_ = os.Remove(done.path)
			}
			return Paths{}, fmt.Errorf("render %s: %w", step.name, err)
		}
	}
	return paths, nil
}

func writePDF(inv *Invoice, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(120, 7, tr(inv.Issuer.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "RUC "+inv.Issuer.RUC, "LTR", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(120, 6, tr(inv.Issuer.Address), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(inv.Title()), "LR", 1, "C", false, 0, "")
	pdf.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, inv.Code(), "LBR", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Fecha de emisión", inv.IssuedAt.Format("02/01/2006 15:04")},
		{"Cliente", inv.Customer.Name},
		{inv.Customer.DocumentType, inv.Customer.DocumentNumber},
		{"Dirección", inv.Customer.Address},
		{"Pedido", inv.OrderID.String()},
		{"Moneda", inv.Currency},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	if !inv.Customer.Verified {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, tr("Datos del cliente no verificados"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{20, 95, 32, 33}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range []string{"Cant.", "Descripción", "P. Unit.", "Importe"} {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range inv.Lines {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(l.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, l.Subtotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	totals := [][2]string{
		{"Op. gravada", inv.Subtotal.StringFixed(2)},
		{"IGV", inv.Tax.StringFixed(2)},
		{"Total", inv.Total.StringFixed(2)},
	}
	for _, t := range totals {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, tr(t[0]+" S/"), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(widths[3], 6, t[1], "1", 1, "R", false, 0, "")
	}

	return pdf.OutputFileAndClose(path)
}

type xmlParty struct {
	DocumentType   string `xml:"TipoDocumento"`
	DocumentNumber string `xml:"NumeroDocumento"`
	Name           string `xml:"Nombre"`
	Address        string `xml:"Direccion,omitempty"`
	Verified       *bool  `xml:"Verificado,omitempty"`
}

type xmlLine struct {
	Quantity    int    `xml:"Cantidad"`
	Description string `xml:"Descripcion"`
	UnitPrice   string `xml:"PrecioUnitario"`
	Subtotal    string `xml:"Importe"`
}

type xmlInvoice struct {
	XMLName  xml.Name  `xml:"Comprobante"`
	Type     string    `xml:"Tipo"`
	Series   string    `xml:"Serie"`
	Number   string    `xml:"Numero"`
	IssuedAt string    `xml:"FechaEmision"`
	Currency string    `xml:"Moneda"`
	OrderID  string    `xml:"Pedido"`
	Issuer   xmlParty  `xml:"Emisor"`
	Customer xmlParty  `xml:"Cliente"`
	Lines    []xmlLine `xml:"Items>Item"`
	Subtotal string    `xml:"Totales>Subtotal"`
	Tax      string    `xml:"Totales>IGV"`
	Total    string    `xml:"Totales>Total"`
}

func toXML(inv *Invoice) xmlInvoice {
	verified := inv.Customer.Verified
	doc := xmlInvoice{
		Type:     inv.Type,
		Series:   inv.Series,
		Number:   fmt.Sprintf("%06d", inv.Number),
		IssuedAt: inv.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		Currency: inv.Currency,
		OrderID:  inv.OrderID.String(),
		Issuer: xmlParty{
			DocumentType: DocumentRUC, DocumentNumber: inv.Issuer.RUC,
			Name: inv.Issuer.Name, Address: inv.Issuer.Address,
		},
		Customer: xmlParty{
			DocumentType: inv.Customer.DocumentType, DocumentNumber: inv.Customer.DocumentNumber,
			Name: inv.Customer.Name, Address: inv.Customer.Address, Verified: &verified,
		},
		Subtotal: inv.Subtotal.StringFixed(2),
		Tax:      inv.Tax.StringFixed(2),
		Total:    inv.Total.StringFixed(2),
	}
	for _, l := range inv.Lines {
		doc.Lines = append(doc.Lines, xmlLine{
			Quantity: l.Quantity, Description: l.Description,
			UnitPrice: l.UnitPrice.StringFixed(2), Subtotal: l.Subtotal.StringFixed(2),
		})
	}
	return doc
}

func writeXML(inv *Invoice, path string) error {
	body, err := xml.MarshalIndent(toXML(inv), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), body...), 0o644)
}

const (
	pngWidth   = 640
	lineHeight = 20.0
)

func writePNG(inv *Invoice, path string) error {
	height := int(260 + lineHeight*float64(len(inv.Lines)))
	dc := gg.NewContext(pngWidth, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.55, 0.35, 0.17)
	dc.DrawRectangle(0, 0, pngWidth, 56)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawString(inv.Issuer.Name, 20, 24)
	dc.DrawString("RUC "+inv.Issuer.RUC, 20, 42)
	dc.DrawStringAnchored(inv.Title(), pngWidth-20, 24, 1, 0)
	dc.DrawStringAnchored(inv.Code(), pngWidth-20, 42, 1, 0)

	dc.SetRGB(0.1, 0.1, 0.1)
	y := 84.0
	for _, text := range []string{
		"Fecha: " + inv.IssuedAt.Format("02/01/2006 15:04"),
		"Cliente: " + inv.Customer.Name,
		inv.Customer.DocumentType + ": " + inv.Customer.DocumentNumber,
	} {
		dc.DrawString(text, 20, y)
		y += lineHeight
	}

	y += 6
	dc.SetLineWidth(1)
	dc.DrawLine(20, y-14, pngWidth-20, y-14)
	dc.Stroke()
	dc.DrawString("Cant.", 20, y)
	dc.DrawString("Descripción", 80, y)
	dc.DrawStringAnchored("Importe", pngWidth-20, y, 1, 0)
	y += lineHeight

	for _, l := range inv.Lines {
		dc.DrawString(fmt.Sprintf("%d", l.Quantity), 20, y)
		dc.DrawString(l.Description, 80, y)
		dc.DrawStringAnchored(l.Subtotal.StringFixed(2), pngWidth-20, y, 1, 0)
		y += lineHeight
	}

	dc.DrawLine(20, y-14, pngWidth-20, y-14)
	dc.Stroke()
	y += 6
	dc.DrawStringAnchored("IGV: S/ "+inv.Tax.StringFixed(2), pngWidth-20, y, 1, 0)
	y += lineHeight
	dc.DrawStringAnchored("TOTAL: S/ "+inv.Total.StringFixed(2), pngWidth-20, y, 1, 0)

	return dc.SavePNG(path)
}
