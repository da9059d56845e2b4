package report

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes a workbook with a "Ventas" sheet for the period series and
// a "Productos" sheet for the product ranking.
func WriteXLSX(w io.Writer, sales []PeriodSales, products []ItemSales) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet("Ventas")
	if err != nil {
		return fmt.Errorf("add sales sheet: %w", err)
	}
	header(sheet, "Periodo", "Pedidos", "Ingresos")
	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Period)
		row.AddCell().SetInt(s.Orders)
		row.AddCell().SetFloat(s.Revenue.InexactFloat64())
	}

	sheet, err = file.AddSheet("Productos")
	if err != nil {
		return fmt.Errorf("add products sheet: %w", err)
	}
	header(sheet, "Producto", "Cantidad", "Ingresos")
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.Name)
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().SetFloat(p.Revenue.InexactFloat64())
	}

	return file.Write(w)
}

func header(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		row.AddCell().SetString(t)
	}
}
