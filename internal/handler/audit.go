package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

// ExportAudit handles GET /audit. The trail is streamed as JSON lines and
// gzip-compressed when the client accepts it.
func (h *Handler) ExportAudit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Add("Vary", "Accept-Encoding")

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		if err := h.audit.Export(w); err != nil {
			zctx.From(r.Context()).Warn("Audit export interrupted", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	gz := pgzip.NewWriter(w)
	if err := h.audit.Export(gz); err != nil {
		zctx.From(r.Context()).Warn("Audit export interrupted", zap.Error(err))
	}
	if err := gz.Close(); err != nil {
		zctx.From(r.Context()).Warn("Close gzip stream", zap.Error(err))
	}
}
