package mode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-fire/model"
	"github.com/khaledhikmat/vs-fire/service/incident"
	"github.com/khaledhikmat/vs-fire/service/lgr"
)

// NewRouter wires the http surface. live may be nil when there is no
// live view.
func NewRouter(svcs ServicesFactory, live http.Handler) http.Handler {
	mux := http.NewServeMux()

	if live != nil {
		mux.Handle("GET /video_feed", live)
	}
	if svcs.BroadcastSvc != nil {
		mux.Handle("GET /ws", svcs.BroadcastSvc.Handler())
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"pipeline":  svcs.Pipeline.ID,
			"inference": svcs.Pipeline.Stats(),
		})
	})
	mux.HandleFunc("GET /api/detections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svcs.Pipeline.Detections())
	})
	mux.HandleFunc("POST /api/detect", detectHandler(svcs))
	mux.HandleFunc("POST /api/snapshot", snapshotHandler(svcs))

	if svcs.IncidentSvc != nil {
		mux.HandleFunc("GET /api/incidents", listIncidentsHandler(svcs))
		mux.HandleFunc("GET /api/incidents/stats", incidentStatsHandler(svcs))
		mux.HandleFunc("GET /api/incidents/{id}", getIncidentHandler(svcs))
		mux.HandleFunc("PATCH /api/incidents/{id}/status", updateStatusHandler(svcs))
		mux.HandleFunc("POST /api/incidents/{id}/notes", addNoteHandler(svcs))
	}

	return mux
}

func detectHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		file, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing image upload")
			return
		}
		defer file.Close()

		buf, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable upload")
			return
		}

		img, err := gocv.IMDecode(buf, gocv.IMReadColor)
		if err != nil || img.Empty() {
			if err == nil {
				img.Close()
			}
			writeError(w, http.StatusBadRequest, "not an image")
			return
		}
		defer img.Close()

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"detections": svcs.Pipeline.Detect(img),
			"width":      img.Cols(),
			"height":     img.Rows(),
		})
	}
}

func snapshotHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jpeg, at, ok := svcs.Pipeline.Snapshot()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "no frame available")
			return
		}

		name := fmt.Sprintf("%s_snapshot_%s.jpg", svcs.CfgSvc.GetCameraID(), at.Format("20060102_150405"))
		path, err := svcs.StorageSvc.StoreSnapshot(name, jpeg)
		if err != nil {
			reportError(svcs, model.GenError("server", err, nil, "error storing snapshot"))
			writeError(w, http.StatusInternalServerError, "snapshot failed")
			return
		}

		lgr.Logger.Info("snapshot stored", slog.String("path", path))
		writeJSON(w, http.StatusCreated, map[string]string{"path": path})
	}
}

func listIncidentsHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svcs.IncidentSvc.ListIncidents(r.Context())
		if err != nil {
			writeIncidentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func getIncidentHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svcs.IncidentSvc.GetIncident(r.Context(), r.PathValue("id"))
		if err != nil {
			writeIncidentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func incidentStatsHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svcs.IncidentSvc.Stats(r.Context(), time.Now())
		if err != nil {
			writeIncidentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func updateStatusHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
			writeError(w, http.StatusBadRequest, "status is required")
			return
		}

		if err := svcs.IncidentSvc.UpdateStatus(r.Context(), r.PathValue("id"), body.Status); err != nil {
			writeIncidentError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addNoteHandler(svcs ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Author  string `json:"author"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		if body.Author == "" {
			body.Author = "operator"
		}

		note, err := svcs.IncidentSvc.AddNote(r.Context(), r.PathValue("id"), body.Author, body.Content)
		if err != nil {
			writeIncidentError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, note)
	}
}

func writeIncidentError(w http.ResponseWriter, err error) {
	if errors.Is(err, incident.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	lgr.Logger.Error("incident request failed", lgr.Err(err))
	writeError(w, http.StatusInternalServerError, "incident log unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lgr.Logger.Debug("response encoding failed", lgr.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
