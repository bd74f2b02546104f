package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/asbjj/shop-api/internal/model"
)

var subjects = map[model.OrderEventKind]string{
	model.OrderEventConfirmation:     "[ASBJJ] Confirmação do Pedido %s",
	model.OrderEventPaymentConfirmed: "[ASBJJ] Pagamento Confirmado - Pedido %s",
	model.OrderEventShipped:          "[ASBJJ] Seu pedido foi enviado - %s",
	model.OrderEventDelivered:        "[ASBJJ] Pedido entregue - %s",
}

var headings = map[model.OrderEventKind]string{
	model.OrderEventConfirmation:     "Recebemos o seu pedido!",
	model.OrderEventPaymentConfirmed: "Pagamento confirmado!",
	model.OrderEventShipped:          "Seu pedido está a caminho!",
	model.OrderEventDelivered:        "Seu pedido foi entregue!",
}

var orderTemplate = template.Must(template.New("order").Parse(`<html>
<body>
  <h2>{{.Heading}}</h2>
  <p>Olá {{.Order.CustomerName}},</p>
  <p>Pedido <strong>{{.Order.OrderNumber}}</strong></p>
  <table>
    {{range .Order.Items}}
    <tr><td>{{.ProductName}}</td><td>{{.Quantity}}x</td><td>R$ {{.Price}}</td><td>R$ {{.TotalPrice}}</td></tr>
    {{end}}
  </table>
  <p>Subtotal: R$ {{.Order.Subtotal}}</p>
  {{if not .Order.Discount.IsZero}}<p>Desconto: -R$ {{.Order.Discount}}</p>{{end}}
  <p>Frete: R$ {{.Order.ShippingCost}}</p>
  <p><strong>Total: R$ {{.Order.Total}}</strong></p>
</body>
</html>`))

// Render produces the subject and HTML body for an order event.
func Render(kind model.OrderEventKind, order *model.Order) (subject, body string, err error) {
	subjectFmt, ok := subjects[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown event kind %q", kind)
	}

	var buf bytes.Buffer
	err = orderTemplate.Execute(&buf, struct {
		Heading string
		Order   *model.Order
	}{Heading: headings[kind], Order: order})
	if err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return fmt.Sprintf(subjectFmt, order.OrderNumber), buf.String(), nil
}
