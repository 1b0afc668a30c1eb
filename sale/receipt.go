package sale

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/stevemurr/simple-pos/model"
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"line":  func(l model.LineItem) float64 { return l.Price * float64(l.Quantity) },
	"stamp": func(tx model.Transaction) string { return tx.Timestamp.Format("2006-01-02 15:04:05") },
}).Parse(`{{.Settings.StoreName}}
Receipt: {{.Tx.ReceiptNumber}}
Date: {{stamp .Tx}}
----------------------------------------
{{range .Tx.Items}}{{.Name}} ({{.SKU}})
  {{.Quantity}} x {{money .Price}} = {{money (line .)}}
{{end}}----------------------------------------
Subtotal: {{money .Tx.Subtotal}}
{{if .Tx.Discount}}Discount: -{{money .Tx.Discount}}
{{end}}Tax: {{money .Tx.Tax}}
Total: {{money .Tx.Total}} {{.Settings.Currency}}
Payment: {{.Tx.PaymentMethod}}{{if .Tx.CardLast4}} ****{{.Tx.CardLast4}}{{end}}
{{if .Settings.ReceiptFooter}}
{{.Settings.ReceiptFooter}}
{{end}}`))

// RenderReceipt formats tx as printable text.
func RenderReceipt(tx model.Transaction, settings model.Settings) (string, error) {
	var b strings.Builder
	err := receiptTmpl.Execute(&b, struct {
		Tx       model.Transaction
		Settings model.Settings
	}{tx, settings})
	if err != nil {
		return "", errors.Wrap(err, "render receipt")
	}
	return b.String(), nil
}
