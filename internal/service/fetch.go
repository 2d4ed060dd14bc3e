package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/moltin/transfer-flow-data/internal/domain"
	"github.com/moltin/transfer-flow-data/internal/moltin"
)

func (p *Processor) FetchOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return fetchItems[domain.OrderItem](ctx, p, domain.CollectionOrder, "orders", orderID)
}

func (p *Processor) FetchCartItems(ctx context.Context, cartID string) ([]domain.Item, error) {
	return fetchItems[domain.Item](ctx, p, domain.CollectionCart, "carts", cartID)
}

// fetchItems reads {resource}/{id}/items. Only 200 counts as success and the
// collection must be non-empty.
func fetchItems[T any](ctx context.Context, p *Processor, collection domain.Collection, resource, id string) ([]T, error) {
	ctx, span := p.tracer.Start(ctx, "fetch "+string(collection)+" items")
	defer span.End()

	path := fmt.Sprintf("%s/%s/items", resource, url.PathEscape(id))
	what := string(collection) + " items"

	var items []T
	resp, err := p.platform.Get(ctx, path, &items)
	if err != nil {
		span.RecordError(err)

		var malformed *domain.MalformedDataError
		switch {
		case errors.As(err, &malformed):
			return nil, malformed
		case errors.Is(err, moltin.ErrDecode):
			return nil, &domain.MalformedDataError{Reason: what + ": " + err.Error()}
		}
		if ctx.Err() == nil {
			p.log.Error("platform request failed", zap.String("path", path), zap.Error(err))
		}
		return nil, &domain.TransportError{Resource: what, Action: "fetching", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		p.log.Warn("unexpected platform status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", resp.Message()),
		)
		return nil, &domain.TransportError{Resource: what, Action: "fetching", StatusCode: resp.StatusCode}
	}

	if len(items) == 0 {
		return nil, &domain.EmptyResultError{Collection: collection}
	}

	return items, nil
}
