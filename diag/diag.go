// Package diag serves a small JSON API to inspect and cancel workflow instances.
package diag

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yinan-symphony/symphony-wdk/engine"
	"github.com/yinan-symphony/symphony-wdk/log"
)

const defaultCount = 25

// NewServeMux returns an *http.ServeMux serving
//
//	GET    /api/workflows/{workflowID}/instances?count=n
//	GET    /api/instances/{instanceID}
//	DELETE /api/instances/{instanceID}
func NewServeMux(e Engine, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/workflows/{workflowID}/instances", func(w http.ResponseWriter, r *http.Request) {
		count := defaultCount
		if countStr := r.URL.Query().Get("count"); countStr != "" {
			var err error
			count, err = strconv.Atoi(countStr)
			if err != nil || count < 0 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		instances := e.Instances(r.Context(), r.PathValue("workflowID"))

		// Newest last, keep the newest count
		result := &InstanceList{Total: len(instances), Instances: make([]*InstanceRef, 0)}
		if len(instances) > count {
			instances = instances[len(instances)-count:]
		}

		for _, s := range instances {
			result.Instances = append(result.Instances, &InstanceRef{
				InstanceID: s.InstanceID,
				WorkflowID: s.WorkflowID,
				Status:     s.Status,
				OpenWaits:  s.OpenWaits,
			})
		}

		writeJSON(w, logger, result)
	})

	mux.HandleFunc("GET /api/instances/{instanceID}", func(w http.ResponseWriter, r *http.Request) {
		s, err := e.Instance(r.Context(), r.PathValue("instanceID"))
		if err != nil {
			w.WriteHeader(statusFor(err))
			return
		}

		writeJSON(w, logger, s)
	})

	mux.HandleFunc("DELETE /api/instances/{instanceID}", func(w http.ResponseWriter, r *http.Request) {
		instanceID := r.PathValue("instanceID")

		if err := e.CancelInstance(r.Context(), instanceID); err != nil {
			w.WriteHeader(statusFor(err))
			return
		}

		logger.Info("Canceled workflow instance", log.InstanceIDKey, instanceID)

		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInstanceFinished):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Could not encode response", "error", err)
	}
}

var _ Engine = (*engine.Engine)(nil)
