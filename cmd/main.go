package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/moltin/transfer-flow-data/internal/app"
	"github.com/moltin/transfer-flow-data/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("initialising: %v", err)
	}

	handler := func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := a.Handler.Handle(ctx, event)
		a.Flush(ctx)
		return resp, err
	}

	lambda.StartWithOptions(handler,
		lambda.WithEnableSIGTERM(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			if err := a.Shutdown(ctx); err != nil {
				a.Log.Warn("shutdown", zap.Error(err))
			}
		}),
	)
}
