// Command local serves the transfer-flows handler over plain HTTP for
// development and integration testing outside Lambda.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moltin/transfer-flow-data/internal/app"
	"github.com/moltin/transfer-flow-data/internal/config"
)

func newRouter(a *app.App) *gin.Engine {
	if a.Config.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	r.POST("/transfer-flows", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "reading body: " + err.Error()})
			return
		}

		headers := make(map[string]string, len(c.Request.Header))
		for k := range c.Request.Header {
			headers[k] = c.Request.Header.Get(k)
		}

		resp, _ := a.Handler.Handle(c.Request.Context(), events.APIGatewayProxyRequest{
			HTTPMethod: c.Request.Method,
			Path:       c.Request.URL.Path,
			Headers:    headers,
			Body:       string(body),
		})
		c.Data(resp.StatusCode, "application/json", []byte(resp.Body))
	})

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("initialising: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Local.Addr,
		Handler: newRouter(a),
	}

	go func() {
		a.Log.Info("local server listening", zap.String("addr", cfg.Local.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Local.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Error("server shutdown", zap.Error(err))
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		a.Log.Error("app shutdown", zap.Error(err))
	}
}
