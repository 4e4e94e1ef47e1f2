package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// requestLogger adapts logrus to chi's RequestLogger middleware.
type requestLogger struct {
	log *logrus.Entry
}

type requestLogEntry struct {
	log *logrus.Entry
}

func (l requestLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{log: l.log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote":     r.RemoteAddr,
	})}
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.log.WithFields(logrus.Fields{
		"status":   status,
		"bytes":    bytes,
		"duration": elapsed,
	}).Info("request served")
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.log.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("request panicked")
}
