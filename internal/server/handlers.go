package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/ppiankov/claimwatch/internal/detect"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/ppiankov/claimwatch/internal/source"
	"go.uber.org/zap"
)

// detectRequest is the body of POST /v1/detect. Each claim row carries its
// table in _claimType. Omitted knobs fall back to the server configuration.
type detectRequest struct {
	Now                *time.Time       `json:"now"`
	StaleDraftDays     *int             `json:"stale_draft_days" validate:"omitempty,gte=0"`
	HangingDays        *int             `json:"hanging_days" validate:"omitempty,gte=0"`
	UnresolvedStatuses []string         `json:"unresolved_statuses" validate:"omitempty,dive,required"`
	Claims             []model.RawClaim `json:"claims" validate:"required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", map[string]string{"version": s.version})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	if max := s.cfg.Server.MaxBodyBytes; max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(log, w, &apiError{status: http.StatusRequestEntityTooLarge, message: "request body too large"})
			return
		}
		writeError(log, w, &apiError{status: http.StatusBadRequest, message: "read request body", err: err})
		return
	}

	var req detectRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(log, w, &apiError{status: http.StatusBadRequest, message: "malformed request body", err: err})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(log, w, &apiError{status: http.StatusBadRequest, message: "invalid request", err: err})
		return
	}

	opts := pipeline.Options{
		StaleDraftDays:     s.cfg.Detection.StaleDraftDays,
		HangingDays:        s.cfg.Detection.HangingDays,
		UnresolvedStatuses: s.cfg.Detection.UnresolvedStatuses,
		Source:             "api",
	}
	if req.StaleDraftDays != nil {
		opts.StaleDraftDays = *req.StaleDraftDays
	}
	if req.HangingDays != nil {
		opts.HangingDays = *req.HangingDays
	}
	if req.UnresolvedStatuses != nil {
		opts.UnresolvedStatuses = req.UnresolvedStatuses
	}

	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}

	report, err := pipeline.Analyze(source.TagRows(req.Claims), now, opts)
	if err != nil {
		if errors.Is(err, detect.ErrDuplicateClaimID) {
			writeError(log, w, &apiError{status: http.StatusConflict, message: "duplicate claim id", err: err})
			return
		}
		writeError(log, w, &apiError{status: http.StatusInternalServerError, message: "detection failed", err: err})
		return
	}

	writeSuccess(w, http.StatusOK, "", report)
}
