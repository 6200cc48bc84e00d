package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-linker/internal/linker"
	"github.com/JakeFAU/seo-linker/internal/metrics"
	"github.com/JakeFAU/seo-linker/internal/refine"
)

const maxBodyBytes = 2 << 20

type linkRequest struct {
	InputText  string `json:"input_text"`
	ExcludeURL string `json:"exclude_url"`
}

type improveResponse struct {
	linker.Result
	Refined bool `json:"refined"`
}

func (s *Server) decodeLinkRequest(w http.ResponseWriter, r *http.Request) (linkRequest, bool) {
	var req linkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	if strings.TrimSpace(req.InputText) == "" {
		s.writeError(w, http.StatusBadRequest, "No input text provided")
		return req, false
	}
	if s.deps.Keywords == nil || !s.deps.Keywords.Loaded() {
		s.writeError(w, http.StatusServiceUnavailable, "keyword table not loaded")
		return req, false
	}
	return req, true
}

func (s *Server) inject(req linkRequest) linker.Result {
	res := s.deps.Engine.Inject(req.InputText, s.deps.Keywords.Snapshot(), req.ExcludeURL)
	metrics.ObserveInjection(len(res.Usages))
	return res
}

func (s *Server) processText(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeLinkRequest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.inject(req))
}

func (s *Server) improveLinking(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refiner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "link refinement is not configured")
		return
	}
	req, ok := s.decodeLinkRequest(w, r)
	if !ok {
		return
	}
	res := s.inject(req)

	refined, err := s.deps.Refiner.Refine(r.Context(), res.Text, res.Usages)
	switch {
	case errors.Is(err, refine.ErrLinksChanged):
		s.writeJSON(w, http.StatusOK, improveResponse{Result: res})
		return
	case err != nil:
		s.logger.Error("refinement failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		s.writeError(w, http.StatusBadGateway, "refinement failed")
		return
	}
	res.Text = refined
	s.writeJSON(w, http.StatusOK, improveResponse{Result: res, Refined: len(res.Usages) > 0})
}

func (s *Server) listKeywords(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Keywords == nil {
		s.writeError(w, http.StatusServiceUnavailable, "keyword table not configured")
		return
	}
	entries := s.deps.Keywords.Snapshot()
	if entries == nil {
		entries = []linker.Association{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":          len(entries),
		"per_target_cap": s.deps.Engine.PerTargetCap(),
		"keywords":       entries,
	})
}

func (s *Server) reloadKeywords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Keywords == nil {
		s.writeError(w, http.StatusServiceUnavailable, "keyword table not configured")
		return
	}
	n, err := s.deps.Keywords.Reload(r.Context())
	if err != nil {
		s.logger.Error("keyword reload failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "keyword reload failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
