package dvr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/frankamera/frankamera/internal/cameras"
	"github.com/frankamera/frankamera/internal/ffmpeg"
	"github.com/frankamera/frankamera/pkg/isapi"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			ExportRate int64 `yaml:"export_rate"` // bytes per second, 0 = unlimited
		} `yaml:"dvr"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("dvr")
	exportRate = cfg.Mod.ExportRate

	api.HandleFunc("api/search", apiSearch)
	api.HandleFunc("api/download", apiDownload)
	api.HandleFunc("api/jobs", apiJobs)
	api.HandleFunc("api/jobs/file", apiJobFile)
	api.HandleFunc("api/export", apiExport)
}

var (
	log        zerolog.Logger
	exportRate int64
)

type searchRequest struct {
	CameraID  int       `json:"camera_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type searchResult struct {
	CameraID  int       `json:"camera_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	RTSPURI   string    `json:"rtsp_uri"`
}

var errNoStreams = errors.New("camera has no streaming channels")

// search resolves the camera and asks the DVR for stored video on its
// first streaming channel.
func search(cameraID int, start, end time.Time) (*isapi.Recording, error) {
	camera, err := cameras.Get(cameraID)
	if err != nil {
		return nil, err
	}

	if len(camera.Streams) == 0 {
		return nil, errNoStreams
	}

	return cameras.Client().Search(camera.Streams[0], start, end)
}

// errorStatus - HTTP status for the error taxonomy of the search flow
func errorStatus(err error) int {
	switch {
	case errors.Is(err, cameras.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, isapi.ErrInvalidRange):
		return http.StatusConflict
	case errors.Is(err, isapi.ErrNoRecordings):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func decodeRequest(r *http.Request) (*searchRequest, error) {
	if r.Method != "POST" {
		return nil, errors.New("POST expected")
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, errors.New("start_time and end_time are required")
	}

	return &req, nil
}

func apiSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		api.ErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	rec, err := search(req.CameraID, req.StartTime, req.EndTime)
	if err != nil {
		api.ErrorJSON(w, errorStatus(err), err)
		return
	}

	api.ResponseJSON(w, searchResult{
		CameraID:  req.CameraID,
		StartTime: rec.Start,
		EndTime:   rec.End,
		RTSPURI:   rec.RTSPURI,
	})
}

func apiDownload(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		api.ErrorJSON(w, http.StatusBadRequest, err)
		return
	}

	// search again, the client-provided range may be stale
	rec, err := search(req.CameraID, req.StartTime, req.EndTime)
	if err != nil {
		api.ErrorJSON(w, errorStatus(err), err)
		return
	}

	jobID, err := ffmpeg.Download(rec.RTSPURI, rec.End.Sub(rec.Start))
	if err != nil {
		api.ErrorJSON(w, http.StatusServiceUnavailable, err)
		return
	}

	log.Info().Str("job", jobID).Int("camera", req.CameraID).Msg("[dvr] download")

	api.ResponseJSON(w, map[string]string{"job_id": jobID})
}

func apiJobs(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		job, ok := ffmpeg.Get(id)
		if !ok {
			api.ErrorJSON(w, http.StatusNotFound, errors.New("unknown job"))
			return
		}
		api.ResponseJSON(w, job)
		return
	}

	api.ResponseJSON(w, ffmpeg.Jobs())
}

func apiJobFile(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	path, err := ffmpeg.File(id)
	if err != nil {
		api.ErrorJSON(w, http.StatusNotFound, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.mp4"`)
	http.ServeFile(w, r, path)
}
