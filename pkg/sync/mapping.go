package sync

import (
	"fmt"

	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
)

func mapItem(item *orders.OrderItem, variantID int64) provider.Item {
	var files []provider.File
	if item.PrintFileURL != "" {
		files = append(files, provider.File{Type: "default", URL: item.PrintFileURL})
	}
	if item.PreviewURL != "" {
		files = append(files, provider.File{Type: "preview", URL: item.PreviewURL})
	}

	return provider.Item{
		VariantID:   variantID,
		Quantity:    item.Quantity,
		RetailPrice: formatMoney(item.RetailPrice),
		Name:        item.ProductName,
		Files:       files,
	}
}

func buildRequest(order *orders.Order, items []provider.Item) *provider.OrderRequest {
	addr := order.Address

	var subtotal float64
	for i := range order.Items {
		subtotal += order.Items[i].RetailPrice * float64(order.Items[i].Quantity)
	}

	currency := order.Currency
	if currency == "" {
		currency = "EUR"
	}

	return &provider.OrderRequest{
		ExternalID: order.ID,
		Recipient: provider.Recipient{
			Name:        addr.Name,
			Address1:    addr.Street1,
			Address2:    addr.Street2,
			City:        addr.City,
			StateCode:   addr.State,
			CountryCode: addr.CountryCode,
			Zip:         addr.Zip,
			Phone:       addr.Phone,
			Email:       addr.Email,
		},
		Items: items,
		RetailCosts: provider.Costs{
			Currency: currency,
			Subtotal: formatMoney(subtotal),
			Shipping: order.ShippingCost,
			Total:    formatMoney(subtotal),
		},
	}
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
