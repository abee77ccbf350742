package catalog

import (
	"context"
	"testing"

	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/provider"
)

type fakeProvider struct {
	calls    int
	variants map[int64]*provider.Variant
}

func (f *fakeProvider) GetVariant(_ context.Context, variantID int64) (*provider.Variant, error) {
	f.calls++
	v, ok := f.variants[variantID]
	if !ok {
		return nil, &provider.APIError{Status: 404, Message: "variant not found"}
	}
	return v, nil
}

func TestResolveRejectsItemWithoutVariantID(t *testing.T) {
	cat := New(&fakeProvider{}, nil, 0)

	_, err := cat.Resolve(context.Background(), &orders.OrderItem{SKU: "mug-white"})
	if err == nil {
		t.Fatal("expected error for item without provider variant id")
	}
}

func TestResolveAvailability(t *testing.T) {
	fp := &fakeProvider{variants: map[int64]*provider.Variant{
		1: {ID: 1, Name: "Tee M", Availability: "in_stock"},
		2: {ID: 2, Name: "Old Tee", Availability: "discontinued"},
		3: {ID: 3, Name: "Hoodie L", Availability: "out_of_stock"},
	}}
	cat := New(fp, nil, 0)

	id, err := cat.Resolve(context.Background(), &orders.OrderItem{SKU: "tee-m", ProviderVariantID: 1})
	if err != nil || id != 1 {
		t.Fatalf("in_stock variant should resolve, got id=%d err=%v", id, err)
	}

	if _, err := cat.Resolve(context.Background(), &orders.OrderItem{SKU: "old-tee", ProviderVariantID: 2}); err == nil {
		t.Fatal("discontinued variant must not resolve")
	}
	if _, err := cat.Resolve(context.Background(), &orders.OrderItem{SKU: "hoodie-l", ProviderVariantID: 3}); err == nil {
		t.Fatal("out_of_stock variant must not resolve")
	}
}

func TestResolveUnknownVariant(t *testing.T) {
	cat := New(&fakeProvider{variants: map[int64]*provider.Variant{}}, nil, 0)

	if _, err := cat.Resolve(context.Background(), &orders.OrderItem{SKU: "ghost", ProviderVariantID: 99}); err == nil {
		t.Fatal("unknown variant must not resolve")
	}
}
