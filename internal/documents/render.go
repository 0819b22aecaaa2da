package documents

import (
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/ecoserv/ecoserv/internal/billing"
)

var (
	grey      = &props.Color{Red: 100, Green: 100, Blue: 100}
	dark      = &props.Color{Red: 33, Green: 37, Blue: 41}
	white     = &props.Color{Red: 255, Green: 255, Blue: 255}
	stripe    = &props.Color{Red: 246, Green: 248, Blue: 246}
	labelText = props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: grey}
	valueText = props.Text{Size: 8, Align: align.Left}
)

// Render lays out doc as an A4 PDF and returns its bytes.
func Render(company Company, doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		WithPageNumber(props.PageNumber{
			Pattern: "Pagina {current} de {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   grey,
		}).
		Build()

	m := maroto.New(cfg)
	addHeader(m, company, doc)
	addDetails(m, doc)
	addItems(m, doc)
	addTotals(m, doc)
	if doc.Notes != "" {
		m.AddRows(
			row.New(6).Add(col.New(12).Add(text.New("OBSERVACIONES", labelText))),
			row.New(10).Add(col.New(12).Add(text.New(doc.Notes, valueText))),
		)
	}

	pdf, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("documents: render %s: %w", doc.Number, err)
	}
	return pdf.GetBytes(), nil
}

func addHeader(m core.Maroto, company Company, doc Document) {
	m.AddRows(
		row.New(10).Add(
			col.New(7).Add(text.New(company.Name, props.Text{Size: 14, Style: fontstyle.Bold})),
			col.New(5).Add(text.New(doc.Title, props.Text{Size: 13, Style: fontstyle.Bold, Align: align.Right, Color: dark})),
		),
		row.New(6).Add(
			col.New(7).Add(text.New(fmt.Sprintf("RUC %s | %s", company.TaxID, company.Address), props.Text{Size: 8, Color: grey})),
			col.New(5).Add(text.New("N. "+doc.Number, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
		),
		row.New(4),
	)
}

func addDetails(m core.Maroto, doc Document) {
	m.AddRows(
		row.New(5).Add(col.New(12).Add(text.New("CLIENTE", labelText))),
		row.New(7).Add(col.New(12).Add(text.New(doc.Client, props.Text{Size: 9, Style: fontstyle.Bold}))),
	)
	for _, f := range doc.Details {
		m.AddRows(row.New(5).Add(
			col.New(3).Add(text.New(f.Label, labelText)),
			col.New(9).Add(text.New(f.Value, valueText)),
		))
	}
	m.AddRows(row.New(4))
}

func addItems(m core.Maroto, doc Document) {
	head := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: white}
	headLeft := head
	headLeft.Align = align.Left
	headCell := &props.Cell{BackgroundColor: dark}

	m.AddRows(row.New(7).Add(
		col.New(1).Add(text.New("#", head)).WithStyle(headCell),
		col.New(5).Add(text.New("Descripcion", headLeft)).WithStyle(headCell),
		col.New(1).Add(text.New("Cant.", head)).WithStyle(headCell),
		col.New(1).Add(text.New("Dias", head)).WithStyle(headCell),
		col.New(2).Add(text.New("P. Unit.", head)).WithStyle(headCell),
		col.New(2).Add(text.New("Importe", head)).WithStyle(headCell),
	))

	center := props.Text{Size: 7, Align: align.Center}
	left := props.Text{Size: 7, Align: align.Left}
	right := props.Text{Size: 7, Align: align.Right}
	for i, item := range doc.Items {
		cols := []core.Col{
			col.New(1).Add(text.New(strconv.Itoa(item.Position), center)),
			col.New(5).Add(text.New(item.Description, left)),
			col.New(1).Add(text.New(Quantity(item.Quantity), center)),
			col.New(1).Add(text.New(strconv.Itoa(billing.EffectiveDays(item.Days)), center)),
			col.New(2).Add(text.New(Money(doc.Currency, item.UnitPrice), right)),
			col.New(2).Add(text.New(Money(doc.Currency, item.Amount), right)),
		}
		if i%2 == 1 {
			for j := range cols {
				cols[j] = cols[j].WithStyle(&props.Cell{BackgroundColor: stripe})
			}
		}
		m.AddRows(row.New(6).Add(cols...))
	}
	m.AddRows(row.New(3))
}

func addTotals(m core.Maroto, doc Document) {
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	value := props.Text{Size: 8, Align: align.Right}
	line := func(name string, amount float64) core.Row {
		return row.New(6).Add(
			col.New(10).Add(text.New(name, label)),
			col.New(2).Add(text.New(Money(doc.Currency, amount), value)),
		)
	}
	m.AddRows(
		line("Subtotal", doc.Subtotal),
		line(fmt.Sprintf("IGV %.0f%%", billing.TaxRate*100), doc.Tax),
		line("Total", doc.Total),
		row.New(4),
	)
}
