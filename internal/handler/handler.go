package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltin/transfer-flow-data/internal/domain"
	"github.com/moltin/transfer-flow-data/internal/service"
	"github.com/moltin/transfer-flow-data/pkg/logger"
	"github.com/moltin/transfer-flow-data/pkg/metrics"
)

const successMessage = "Great success"

// Transferer runs one flow transfer. *service.Processor satisfies it.
type Transferer interface {
	TransferFlows(ctx context.Context, orderID, cartID string) (*service.Result, error)
}

type Handler struct {
	transferer Transferer
	log        *zap.Logger
	metrics    *metrics.Collector
}

func New(transferer Transferer, log *zap.Logger, collector *metrics.Collector) *Handler {
	return &Handler{transferer: transferer, log: log, metrics: collector}
}

type request struct {
	OrderID *string `json:"orderID"`
	CartID  *string `json:"cartID"`
}

// OutcomeView is the per-pairing breakdown returned with every response.
type OutcomeView struct {
	OrderItemID string   `json:"order_item_id"`
	CartItemID  string   `json:"cart_item_id"`
	Status      int      `json:"status,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type responseBody struct {
	Message string        `json:"message"`
	Results []OutcomeView `json:"results,omitempty"`
}

// Handle is the Lambda entry point. It always returns exactly one response
// and a nil error; failures are reported as status 500.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	log := logger.ForInvocation(ctx, h.log, requestID(ctx, event))

	resp, outcome := h.handle(ctx, log, event)

	if h.metrics != nil {
		h.metrics.InvocationsTotal.WithLabelValues(outcome).Inc()
		h.metrics.InvocationDuration.Observe(time.Since(start).Seconds())
	}
	return resp, nil
}

func (h *Handler) handle(ctx context.Context, log *zap.Logger, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, string) {
	req, err := parseRequest(event)
	if err != nil {
		log.Warn("rejected invocation", zap.Error(err))
		return respond(http.StatusInternalServerError, err.Error(), nil), "invalid_input"
	}

	orderID, cartID := *req.OrderID, *req.CartID
	log = log.With(zap.String("order_id", orderID), zap.String("cart_id", cartID))

	result, err := h.transferer.TransferFlows(ctx, orderID, cartID)
	if err != nil {
		log.Error("transfer aborted", zap.Error(err))
		return respond(http.StatusInternalServerError, err.Error(), nil), "failure"
	}

	views := outcomeViews(result)
	if err := result.Err(); err != nil {
		var transferErr *service.TransferError
		if errors.As(err, &transferErr) {
			log.Error("order items not updated",
				zap.Int("failed", transferErr.Failed),
				zap.Int("total", transferErr.Total),
				zap.Error(err),
			)
		}
		return respond(http.StatusInternalServerError, "error updating the order: "+err.Error(), views), "failure"
	}

	log.Info("order items updated", zap.Int("pairings", len(result.Outcomes)))
	return respond(http.StatusOK, successMessage, views), "success"
}

func parseRequest(event events.APIGatewayProxyRequest) (*request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, errors.New("invalid request body: not valid base64")
		}
		body = decoded
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid request body: " + err.Error())
	}

	if req.OrderID == nil || *req.OrderID == "" {
		return nil, &domain.InputValidationError{Field: "orderID"}
	}
	if req.CartID == nil || *req.CartID == "" {
		return nil, &domain.InputValidationError{Field: "cartID"}
	}
	return &req, nil
}

func outcomeViews(result *service.Result) []OutcomeView {
	views := make([]OutcomeView, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		v := OutcomeView{
			OrderItemID: o.OrderItemID,
			CartItemID:  o.CartItemID,
			Status:      o.StatusCode,
			Fields:      o.Fields,
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		views = append(views, v)
	}
	return views
}

func respond(status int, message string, results []OutcomeView) events.APIGatewayProxyResponse {
	body, err := json.Marshal(responseBody{Message: message, Results: results})
	if err != nil {
		// Only strings and ints are encoded here.
		body = []byte(`{"message":"internal error"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func requestID(ctx context.Context, event events.APIGatewayProxyRequest) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if event.RequestContext.RequestID != "" {
		return event.RequestContext.RequestID
	}
	return uuid.NewString()
}
