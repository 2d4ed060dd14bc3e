package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moltin/transfer-flow-data/internal/domain"
	"github.com/moltin/transfer-flow-data/internal/moltin"
	"github.com/moltin/transfer-flow-data/pkg/metrics"
)

// Platform is the commerce API surface the processor needs.
// *moltin.Client satisfies it.
type Platform interface {
	Get(ctx context.Context, path string, out any) (*moltin.Response, error)
	Put(ctx context.Context, path string, in, out any) (*moltin.Response, error)
}

type Processor struct {
	platform    Platform
	log         *zap.Logger
	metrics     *metrics.Collector
	tracer      trace.Tracer
	concurrency int
}

func NewProcessor(platform Platform, log *zap.Logger, collector *metrics.Collector, concurrency int) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		platform:    platform,
		log:         log,
		metrics:     collector,
		tracer:      otel.Tracer("github.com/moltin/transfer-flow-data/internal/service"),
		concurrency: concurrency,
	}
}

// TransferFlows copies the custom fields of every cart item onto the order
// item created from it. A nil error with a failed Result means the fetches
// worked but at least one pairing did not; Result.Err reports it.
func (p *Processor) TransferFlows(ctx context.Context, orderID, cartID string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "TransferFlows", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("cart.id", cartID),
	))
	defer span.End()

	var (
		orderItems []domain.OrderItem
		cartItems  []domain.Item
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := p.FetchOrderItems(gctx, orderID)
		orderItems = items
		return err
	})
	g.Go(func() error {
		items, err := p.FetchCartItems(gctx, cartID)
		cartItems = items
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pairings, err := domain.BuildPairings(orderItems)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p.log.Debug("pairings built",
		zap.String("order_id", orderID),
		zap.String("cart_id", cartID),
		zap.Int("pairings", len(pairings)),
	)

	result := p.Transfer(ctx, orderItems, cartItems, pairings)
	if err := result.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, nil
}
