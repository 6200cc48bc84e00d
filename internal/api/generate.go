package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/crawler"
	"github.com/JakeFAU/seo-linker/internal/keywords"
	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/publisher"
	"github.com/JakeFAU/seo-linker/internal/storage"
	"github.com/JakeFAU/seo-linker/internal/telemetry"
)

type generateRequest struct {
	Domain   string `json:"domain"`
	MaxDepth int    `json:"max_depth"`
	Export   bool   `json:"export"`
}

func (s *Server) generateKeywords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Crawler == nil || s.deps.Generator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "keyword generation is not configured")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Domain == "" {
		s.writeError(w, http.StatusBadRequest, "Domain is required")
		return
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = s.cfg.Crawler.MaxDepthDefault
	}
	reqID := RequestID(r.Context())
	logger := s.logger.With(zap.String("request_id", reqID), zap.String("domain", req.Domain))

	ctx, span := telemetry.StartSpan(r.Context(), "crawl",
		attribute.String("domain", req.Domain), attribute.Int("max_depth", req.MaxDepth))
	urls, err := s.deps.Crawler.Discover(ctx, req.Domain, req.MaxDepth)
	telemetry.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, crawler.ErrNoURLs) {
			s.writeError(w, http.StatusNotFound, "No URLs found to process")
			return
		}
		logger.Warn("crawl failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "crawl failed")
		return
	}

	ctx, span = telemetry.StartSpan(r.Context(), "generate", attribute.Int("urls", len(urls)))
	pairs, err := s.deps.Generator.Generate(ctx, urls)
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.Error("keyword generation failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "keyword generation failed")
		return
	}

	var blobURI string
	if req.Export {
		blobURI, err = s.export(r.Context(), storage.Export{
			Prefix:    s.cfg.Storage.Prefix,
			Domain:    req.Domain,
			RequestID: reqID,
			At:        s.deps.Now(),
			ID:        uuid.New(),
		}, pairs)
		if err != nil {
			logger.Error("keyword export failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "keyword export failed")
			return
		}
		w.Header().Set("X-Export-URI", blobURI)
	}

	s.announce(r.Context(), logger, publisher.GeneratedEvent{
		RequestID: reqID,
		Domain:    req.Domain,
		URLs:      len(urls),
		Keywords:  len(pairs),
		BlobURI:   blobURI,
	})

	rows := make([][2]string, len(pairs))
	for i, p := range pairs {
		rows[i] = [2]string{p.Keyword, p.URL}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) export(ctx context.Context, meta storage.Export, pairs []linker.Association) (string, error) {
	if s.deps.Blobs == nil {
		return "", fmt.Errorf("no blob store configured")
	}
	var buf bytes.Buffer
	if err := keywords.Encode(&buf, pairs); err != nil {
		return "", err
	}
	obj := meta.Object(&buf)
	uri, err := s.deps.Blobs.Put(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", obj.Path, err)
	}
	return uri, nil
}

func (s *Server) announce(ctx context.Context, logger *zap.Logger, event publisher.GeneratedEvent) {
	if s.deps.Publisher == nil {
		return
	}
	id, err := s.deps.Publisher.Publish(ctx, publisher.TopicKeywordsGenerated, event)
	if err != nil {
		logger.Warn("publish generation event failed", zap.Error(err))
		return
	}
	logger.Debug("generation event published", zap.String("message_id", id))
}
