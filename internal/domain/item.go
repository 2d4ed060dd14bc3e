package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// BaselineFields are the attribute names every cart and order item carries.
// Anything outside this set is a custom (flow) field.
var BaselineFields = []string{
	"id",
	"type",
	"product_id",
	"name",
	"description",
	"sku",
	"image",
	"quantity",
	"manage_stock",
	"unit_price",
	"value",
	"links",
	"meta",
}

var baselineSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(BaselineFields))
	for _, name := range BaselineFields {
		set[name] = struct{}{}
	}
	return set
}()

// IsBaseline reports whether name belongs to the baseline item schema.
func IsBaseline(name string) bool {
	_, ok := baselineSet[name]
	return ok
}

type Image struct {
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Href     string `json:"href,omitempty"`
}

type Price struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	IncludesTax bool   `json:"includes_tax"`
}

// Item is a cart or order line item. Baseline attributes are typed; every
// other attribute is kept verbatim in Custom.
type Item struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Image       *Image          `json:"image"`
	Quantity    int             `json:"quantity"`
	ManageStock bool            `json:"manage_stock"`
	UnitPrice   *Price          `json:"unit_price"`
	Value       *Price          `json:"value"`
	Links       json.RawMessage `json:"links"`
	Meta        json.RawMessage `json:"meta"`

	Custom map[string]json.RawMessage `json:"-"`

	// present records which baseline keys appeared in the source document so
	// that attribute membership and re-encoding stay faithful to it.
	present map[string]struct{}
}

type itemFields Item

func (i *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// encoding/json matches struct tags case-insensitively, so only exact
	// baseline keys may reach the typed fields.
	baseline := make(map[string]json.RawMessage, len(BaselineFields))
	custom := make(map[string]json.RawMessage)
	for key, value := range raw {
		if IsBaseline(key) {
			baseline[key] = value
			continue
		}
		custom[key] = value
	}

	filtered, err := json.Marshal(baseline)
	if err != nil {
		return err
	}
	var fields itemFields
	if err := json.Unmarshal(filtered, &fields); err != nil {
		return err
	}
	*i = Item(fields)

	i.present = make(map[string]struct{}, len(baseline))
	for key := range baseline {
		i.present[key] = struct{}{}
	}
	i.Custom = custom
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(itemFields(i))
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}

	// Drop baseline keys the source never had, unless the caller built the
	// item in code (present == nil) in which case every baseline key is kept.
	if i.present != nil {
		for key := range out {
			if _, ok := i.present[key]; !ok {
				delete(out, key)
			}
		}
	}
	for key, value := range i.Custom {
		if IsBaseline(key) {
			return nil, fmt.Errorf("custom field %q shadows a baseline attribute", key)
		}
		out[key] = value
	}
	return json.Marshal(out)
}

// HasAttribute reports whether name is an attribute key of the item.
func (i *Item) HasAttribute(name string) bool {
	if IsBaseline(name) {
		if i.present == nil {
			return true
		}
		_, ok := i.present[name]
		return ok
	}
	_, ok := i.Custom[name]
	return ok
}

// AttributeNames returns every attribute key of the item, sorted.
func (i *Item) AttributeNames() []string {
	names := slices.Collect(maps.Keys(i.Custom))
	for _, name := range BaselineFields {
		if i.HasAttribute(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Relationship struct {
	Data *ResourceRef `json:"data"`
}

type OrderItemRelationships struct {
	CartItem *Relationship `json:"cart_item,omitempty"`
}

// OrderItem is an Item on a placed order, linked back to the cart item it was
// created from.
type OrderItem struct {
	Item
	Relationships *OrderItemRelationships
}

func (o *OrderItem) UnmarshalJSON(data []byte) error {
	var item Item
	if err := item.UnmarshalJSON(data); err != nil {
		return err
	}

	var rels *OrderItemRelationships
	if raw, ok := item.Custom["relationships"]; ok {
		if err := json.Unmarshal(raw, &rels); err != nil {
			return &MalformedDataError{ItemID: item.ID, Reason: "relationships: " + err.Error()}
		}
		delete(item.Custom, "relationships")
	}

	o.Item = item
	o.Relationships = rels
	return nil
}

func (o OrderItem) MarshalJSON() ([]byte, error) {
	if o.Relationships == nil {
		return o.Item.MarshalJSON()
	}
	rels, err := json.Marshal(o.Relationships)
	if err != nil {
		return nil, err
	}
	item := o.Item
	item.Custom = maps.Clone(o.Custom)
	if item.Custom == nil {
		item.Custom = make(map[string]json.RawMessage, 1)
	}
	item.Custom["relationships"] = rels
	return item.MarshalJSON()
}

func (o *OrderItem) HasAttribute(name string) bool {
	if name == "relationships" {
		return o.Relationships != nil
	}
	return o.Item.HasAttribute(name)
}

// CartItemID returns the id of the originating cart item, or a
// MalformedDataError when the relationship is absent.
func (o *OrderItem) CartItemID() (string, error) {
	if o.Relationships == nil || o.Relationships.CartItem == nil ||
		o.Relationships.CartItem.Data == nil || o.Relationships.CartItem.Data.ID == "" {
		return "", &MalformedDataError{ItemID: o.ID, Reason: "missing relationships.cart_item.data.id"}
	}
	return o.Relationships.CartItem.Data.ID, nil
}
