package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/logandonley/typecore/internal/logger"
	"github.com/logandonley/typecore/internal/platform"
	"github.com/logandonley/typecore/pkg/fm"
)

// ActionResult is the body of every mutating endpoint.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Count   *int           `json:"count,omitempty"`
	Font    *fm.FontRecord `json:"font,omitempty"`
}

type identityRequest struct {
	Identity string `json:"identity"`
}

type scanRequest struct {
	Path   string `json:"path"`
	System bool   `json:"system"`
}

type syncRequest struct {
	Directory string `json:"directory"`
	APIKey    string `json:"apiKey"`
	Limit     int    `json:"limit"`
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
}

func Healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, d.Logger, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Version:       d.Version,
		})
	}
}

func ListFonts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fonts, err := d.Manager.List(r.Context())
		if err != nil {
			d.Logger.Error("listing fonts failed", logger.Error(err))
			fail(w, d.Logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, fonts)
	}
}

func ClearFonts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Manager.ClearCatalog(r.Context()); err != nil {
			fail(w, d.Logger, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, ActionResult{Success: true, Message: "Catalog cleared"})
	}
}

func transition(d Deps, verb string, apply func(ctx context.Context, identity string) (fm.FontRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
			fail(w, d.Logger, http.StatusBadRequest, errors.New("request body must carry an identity"))
			return
		}

		rec, err := apply(r.Context(), req.Identity)
		if err != nil {
			fail(w, d.Logger, statusFor(err), err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, ActionResult{
			Success: true,
			Message: fmt.Sprintf("%s %s", verb, rec.Family),
			Font:    &rec,
		})
	}
}

func Activate(d Deps) http.HandlerFunc {
	return transition(d, "Activated", d.Manager.Activate)
}

func Deactivate(d Deps) http.HandlerFunc {
	return transition(d, "Deactivated", d.Manager.Deactivate)
}

func Toggle(d Deps) http.HandlerFunc {
	return transition(d, "Toggled", d.Manager.Toggle)
}

func Scan(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Path == "" && !req.System) {
			fail(w, d.Logger, http.StatusBadRequest, errors.New("request body must carry a path or system=true"))
			return
		}

		var result fm.ScanResult
		if req.System {
			result = d.Manager.ScanSystem(r.Context())
		} else {
			var err error
			result, err = d.Manager.ScanDirectory(r.Context(), req.Path)
			if err != nil {
				fail(w, d.Logger, http.StatusBadRequest, err)
				return
			}
		}

		count := result.Cataloged
		writeJSON(w, d.Logger, http.StatusOK, ActionResult{
			Success: true,
			Message: fmt.Sprintf("Cataloged %d of %d font files (%d new, %d failed)",
				result.Cataloged, result.Found, result.Inserted, result.Failed()),
			Count: &count,
		})
	}
}

func Sync(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req syncRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				fail(w, d.Logger, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
				return
			}
		}
		if req.Directory == "" {
			req.Directory = "google"
		}
		if req.Limit <= 0 {
			req.Limit = d.SyncLimit
		}

		var (
			result fm.SyncResult
			err    error
		)
		if req.Directory == "google" {
			key := req.APIKey
			if key == "" {
				key = d.GoogleAPIKey
			}
			result, err = d.Manager.SyncGoogleFonts(r.Context(), key, req.Limit)
		} else {
			result, err = d.Manager.Sync(r.Context(), req.Directory, req.Limit)
		}
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, fm.ErrUnknownDirectory) {
				status = http.StatusNotFound
			}
			fail(w, d.Logger, status, err)
			return
		}

		count := result.Inserted
		writeJSON(w, d.Logger, http.StatusOK, ActionResult{
			Success: true,
			Message: fmt.Sprintf("Synced %d new fonts from %s", result.Inserted, result.Directory),
			Count:   &count,
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fm.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, platform.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		var dl *fm.DownloadError
		if errors.As(err, &dl) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, log logger.Logger, status int, err error) {
	writeJSON(w, log, status, ActionResult{Success: false, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}
