package domain

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

const cartItemJSON = `{
	"id": "c1",
	"type": "cart_item",
	"product_id": "p1",
	"name": "Mug",
	"description": "A mug",
	"sku": "MUG-1",
	"image": {"mime_type": "image/png", "file_name": "mug.png", "href": "https://cdn/mug.png"},
	"quantity": 2,
	"manage_stock": true,
	"unit_price": {"amount": 1200, "currency": "USD", "includes_tax": true},
	"value": {"amount": 2400, "currency": "USD", "includes_tax": true},
	"links": {"product": "https://api/products/p1"},
	"meta": {"timestamps": {"created_at": "2026-01-01T00:00:00Z"}},
	"gift_note": "Happy birthday",
	"engraving": {"text": "AB", "font": "serif"}
}`

func TestItemUnmarshalSplitsCustomFields(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(cartItemJSON), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if item.ID != "c1" || item.Quantity != 2 || !item.ManageStock {
		t.Fatalf("baseline fields not decoded: %+v", item)
	}
	if item.UnitPrice == nil || item.UnitPrice.Amount != 1200 {
		t.Fatalf("unit price not decoded: %+v", item.UnitPrice)
	}
	if len(item.Custom) != 2 {
		t.Fatalf("expected 2 custom fields, got %d: %v", len(item.Custom), item.Custom)
	}
	if string(item.Custom["gift_note"]) != `"Happy birthday"` {
		t.Errorf("gift_note mismatch: %s", item.Custom["gift_note"])
	}
	for _, name := range BaselineFields {
		if _, ok := item.Custom[name]; ok {
			t.Errorf("baseline field %q leaked into custom map", name)
		}
	}
}

func TestItemCaseVariantsOfBaselineAreCustom(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		custom string
		want   string
	}{
		{"quantity with different type", `{"id":"c1","quantity":3,"Quantity":"two"}`, "Quantity", `"two"`},
		{"id does not replace the item id", `{"id":"c1","ID":"x"}`, "ID", `"x"`},
		{"value as free text", `{"id":"c1","Value":"gold"}`, "Value", `"gold"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item Item
			if err := json.Unmarshal([]byte(tt.input), &item); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if item.ID != "c1" {
				t.Errorf("id = %q, want c1", item.ID)
			}
			if got := string(item.Custom[tt.custom]); got != tt.want {
				t.Errorf("custom[%q] = %s, want %s", tt.custom, got, tt.want)
			}
			if !item.HasAttribute(tt.custom) {
				t.Errorf("HasAttribute(%q) = false", tt.custom)
			}
		})
	}

	var item Item
	if err := json.Unmarshal([]byte(`{"id":"c1","quantity":3,"Quantity":"two"}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", item.Quantity)
	}
}

func TestItemRoundTrip(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(cartItemJSON), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var want, got map[string]any
	_ = json.Unmarshal([]byte(cartItemJSON), &want)
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if len(want) != len(got) {
		t.Fatalf("key count mismatch: want %d got %d (%s)", len(want), len(got), out)
	}
	if got["gift_note"] != "Happy birthday" {
		t.Errorf("gift_note lost: %v", got["gift_note"])
	}
}

func TestItemHasAttributeTracksSourceKeys(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`{"id":"c1","gift_note":null}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"id", true},
		{"gift_note", true},
		{"sku", false},
		{"engraving", false},
	}
	for _, tt := range tests {
		if got := item.HasAttribute(tt.name); got != tt.want {
			t.Errorf("HasAttribute(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if got := item.AttributeNames(); !slices.Equal(got, []string{"gift_note", "id"}) {
		t.Errorf("AttributeNames = %v", got)
	}
}

func TestOrderItemRelationships(t *testing.T) {
	payload := `{
		"id": "o1",
		"type": "order_item",
		"quantity": 1,
		"gift_note": "",
		"relationships": {"cart_item": {"data": {"type": "cart_item", "id": "c1"}}}
	}`

	var item OrderItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	id, err := item.CartItemID()
	if err != nil {
		t.Fatalf("CartItemID: %v", err)
	}
	if id != "c1" {
		t.Errorf("cart item id = %q, want c1", id)
	}
	if _, ok := item.Custom["relationships"]; ok {
		t.Error("relationships should not be kept as a custom field")
	}
	if !item.HasAttribute("relationships") || !item.HasAttribute("gift_note") {
		t.Error("order item should report relationships and gift_note as attributes")
	}

	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again OrderItem
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if id, _ := again.CartItemID(); id != "c1" {
		t.Errorf("relationship lost on round trip: %s", out)
	}
}

func TestOrderItemMalformedRelationships(t *testing.T) {
	var item OrderItem
	err := json.Unmarshal([]byte(`{"id":"o1","relationships":"nope"}`), &item)
	if !errors.Is(err, ErrMalformedData) {
		t.Fatalf("expected malformed data error, got %v", err)
	}
}
