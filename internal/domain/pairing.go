package domain

// Pairing links an order item to the cart item it was created from.
type Pairing struct {
	OrderItemID string `json:"order_item_id"`
	CartItemID  string `json:"cart_item_id"`
}

// BuildPairings emits one pairing per order item, in input order. Two order
// items pointing at the same cart item yield two pairings.
func BuildPairings(orderItems []OrderItem) ([]Pairing, error) {
	pairings := make([]Pairing, 0, len(orderItems))
	for i := range orderItems {
		cartItemID, err := orderItems[i].CartItemID()
		if err != nil {
			return nil, err
		}
		pairings = append(pairings, Pairing{
			OrderItemID: orderItems[i].ID,
			CartItemID:  cartItemID,
		})
	}
	return pairings, nil
}
