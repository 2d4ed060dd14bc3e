package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moltin/transfer-flow-data/internal/domain"
)

const flowEntryType = "entry"

// Transfer runs every pairing, at most p.concurrency at a time, and returns
// once all of them have finished. A failed pairing never stops the others.
func (p *Processor) Transfer(ctx context.Context, orderItems []domain.OrderItem, cartItems []domain.Item, pairings []domain.Pairing) *Result {
	ctx, span := p.tracer.Start(ctx, "transfer", trace.WithAttributes(
		attribute.Int("pairings", len(pairings)),
	))
	defer span.End()

	orders := make(map[string]*domain.OrderItem, len(orderItems))
	for i := range orderItems {
		if _, dup := orders[orderItems[i].ID]; !dup {
			orders[orderItems[i].ID] = &orderItems[i]
		}
	}
	carts := make(map[string]*domain.Item, len(cartItems))
	for i := range cartItems {
		if _, dup := carts[cartItems[i].ID]; !dup {
			carts[cartItems[i].ID] = &cartItems[i]
		}
	}

	outcomes := make([]Outcome, len(pairings))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, pairing := range pairings {
		g.Go(func() error {
			outcomes[i] = p.transferOne(ctx, orders, carts, pairing)
			return nil
		})
	}
	_ = g.Wait()

	return &Result{Outcomes: outcomes}
}

func (p *Processor) transferOne(ctx context.Context, orders map[string]*domain.OrderItem, carts map[string]*domain.Item, pairing domain.Pairing) Outcome {
	ctx, span := p.tracer.Start(ctx, "transfer pairing", trace.WithAttributes(
		attribute.String("order_item.id", pairing.OrderItemID),
		attribute.String("cart_item.id", pairing.CartItemID),
	))
	defer span.End()

	outcome := Outcome{Pairing: pairing}
	log := p.log.With(
		zap.String("order_item_id", pairing.OrderItemID),
		zap.String("cart_item_id", pairing.CartItemID),
	)

	fail := func(label string, err error) Outcome {
		outcome.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.countPairing(label)
		return outcome
	}

	orderItem, ok := orders[pairing.OrderItemID]
	if !ok {
		return fail("unresolved", &domain.PairingResolutionError{Collection: domain.CollectionOrder, ItemID: pairing.OrderItemID})
	}
	cartItem, ok := carts[pairing.CartItemID]
	if !ok {
		log.Warn("cart item referenced by order item was not in the cart")
		return fail("unresolved", &domain.PairingResolutionError{Collection: domain.CollectionCart, ItemID: pairing.CartItemID})
	}

	fields := domain.CustomFields(cartItem)
	outcome.Fields = fields

	if err := domain.ValidateFields(orderItem, fields); err != nil {
		log.Warn("custom fields not defined on order item", zap.Error(err))
		return fail("rejected", err)
	}

	entry := flowEntry(pairing.OrderItemID, domain.FieldValues(cartItem, fields))
	resp, err := p.platform.Put(ctx, "flows/order_items/entries/"+url.PathEscape(pairing.OrderItemID), entry, nil)
	resource := "order item " + pairing.OrderItemID
	if err != nil {
		log.Error("flow entry update failed", zap.Error(err))
		return fail("failed", &domain.TransportError{Resource: resource, Action: "updating", Err: err})
	}
	outcome.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		log.Warn("flow entry update rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", resp.Message()),
		)
		return fail("failed", &domain.TransportError{Resource: resource, Action: "updating", StatusCode: resp.StatusCode})
	}

	p.countPairing("written")
	if p.metrics != nil {
		p.metrics.FieldsWrittenTotal.Add(float64(len(fields)))
	}
	log.Debug("flow entry updated", zap.Strings("fields", fields))
	return outcome
}

// flowEntry builds the PUT payload for a flow entry: the custom values plus
// the entry type and id the platform requires. Neither key can collide with a
// custom field since both are baseline attributes.
func flowEntry(orderItemID string, values map[string]json.RawMessage) map[string]any {
	entry := make(map[string]any, len(values)+2)
	for k, v := range values {
		entry[k] = v
	}
	entry["type"] = flowEntryType
	entry["id"] = orderItemID
	return entry
}

func (p *Processor) countPairing(outcome string) {
	if p.metrics != nil {
		p.metrics.PairingsTotal.WithLabelValues(outcome).Inc()
	}
}
