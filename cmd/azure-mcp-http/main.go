// Command azure-mcp-http starts the Azure MCP gateway HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"azure-mcp/internal/azure"
	"azure-mcp/internal/config"
	"azure-mcp/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("GATEWAY_CONFIG"))
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := newLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	timeout, _ := cfg.Timeout()

	var provider server.Provider
	if cfg.HasCredentials() {
		client, err := azure.New(azure.Credentials{
			TenantID:       cfg.Azure.TenantID,
			ClientID:       cfg.Azure.ClientID,
			ClientSecret:   cfg.Azure.ClientSecret,
			SubscriptionID: cfg.Azure.SubscriptionID,
		}, nil)
		if err != nil {
			log.Fatalf("azure client: %v", err)
		}
		provider = client
	} else {
		log.Warn("Azure credentials not set; only tools that need no provider will succeed.")
	}
	if len(cfg.AllowedOrigins) == 0 {
		log.Warn("CORS allow-list is empty; browser clients will be refused.")
	}

	srv, err := server.New(server.Config{
		AllowedOrigins:  cfg.AllowedOrigins,
		Catalog:         cfg.Catalog,
		ProviderTimeout: timeout,
	}, provider, log.WithField("component", "server"))
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertFile != "" {
			log.Infof("Starting MCP HTTPS server on :%s", cfg.Port)
			errCh <- httpSrv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		log.Infof("Starting MCP HTTP server on :%s (run behind a TLS-terminating proxy)", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-stop:
		log.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}
}

func newLogger(c config.Log) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", c.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
