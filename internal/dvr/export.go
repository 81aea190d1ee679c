package dvr

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/cameras"
	"github.com/juju/ratelimit"
)

// apiExport streams a stored file straight from the DVR to the caller,
// bypassing ffmpeg. The DVR sends its native container, so this is only
// useful for tooling that understands it.
func apiExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cameraID, err := strconv.Atoi(query.Get("camera_id"))
	if err != nil {
		api.ErrorJSON(w, http.StatusBadRequest, errors.New("camera_id is required"))
		return
	}

	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		api.ErrorJSON(w, http.StatusBadRequest, errors.New("start is required (RFC 3339)"))
		return
	}

	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		api.ErrorJSON(w, http.StatusBadRequest, errors.New("end is required (RFC 3339)"))
		return
	}

	rec, err := search(cameraID, start, end)
	if err != nil {
		api.ErrorJSON(w, errorStatus(err), err)
		return
	}

	body, size, err := cameras.Client().Download(rec.PlaybackURI)
	if err != nil {
		api.ErrorJSON(w, http.StatusBadGateway, err)
		return
	}
	defer body.Close()

	name := rec.Name
	if name == "" {
		name = "export"
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.mp4"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	var src io.Reader = body
	if exportRate > 0 {
		bucket := ratelimit.NewBucketWithRate(float64(exportRate), exportRate)
		src = ratelimit.Reader(body, bucket)
	}

	if n, err := io.Copy(w, src); err != nil {
		log.Warn().Err(err).Int64("bytes", n).Msg("[dvr] export aborted")
	}
}
