package notification

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbjj/shop-api/internal/model"
)

func sampleOrder() *model.Order {
	code := "FRETE15"
	return &model.Order{
		OrderNumber:  "ASBJJ-20260830-0001",
		CustomerName: "Maria Silva",
		Subtotal:     decimal.NewFromInt(250),
		Discount:     decimal.NewFromInt(15),
		CouponCode:   &code,
		ShippingCost: decimal.NewFromInt(20),
		Total:        decimal.NewFromInt(255),
		Items: []model.OrderItem{
			{ProductName: "Kimono Adulto", Quantity: 2, Price: decimal.NewFromFloat(125), TotalPrice: decimal.NewFromInt(250)},
		},
	}
}

func TestRender_Confirmation(t *testing.T) {
	subject, body, err := Render(model.OrderEventConfirmation, sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "[ASBJJ] Confirmação do Pedido ASBJJ-20260830-0001", subject)
	assert.Contains(t, body, "Maria Silva")
	assert.Contains(t, body, "ASBJJ-20260830-0001")
	assert.Contains(t, body, "Kimono Adulto")
	assert.Contains(t, body, "Desconto")
	assert.Contains(t, body, "255")
}

func TestRender_HidesZeroDiscount(t *testing.T) {
	order := sampleOrder()
	order.Discount = decimal.Zero
	order.CouponCode = nil

	_, body, err := Render(model.OrderEventPaymentConfirmed, order)
	require.NoError(t, err)
	assert.NotContains(t, body, "Desconto")
}

func TestRender_Subjects(t *testing.T) {
	order := sampleOrder()

	subject, _, err := Render(model.OrderEventShipped, order)
	require.NoError(t, err)
	assert.Equal(t, "[ASBJJ] Seu pedido foi enviado - ASBJJ-20260830-0001", subject)

	subject, _, err = Render(model.OrderEventDelivered, order)
	require.NoError(t, err)
	assert.Equal(t, "[ASBJJ] Pedido entregue - ASBJJ-20260830-0001", subject)
}

func TestRender_UnknownKind(t *testing.T) {
	_, _, err := Render(model.OrderEventKind("bogus"), sampleOrder())
	assert.Error(t, err)
}
