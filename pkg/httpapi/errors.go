package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ogulcanaydogan/rsm-incident-toolkit/pkg/incident"
)

const (
	outcomeOK            = "ok"
	outcomeNotFound      = "not_found"
	outcomeInvalid       = "invalid"
	outcomeConfigMissing = "config_missing"
	outcomeUnavailable   = "unavailable"
	outcomeError         = "error"
	outcomeRateLimited   = "rate_limited"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error to its HTTP status and outcome label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, incident.ErrNotFound):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, incident.ErrInvalidPage),
		errors.Is(err, incident.ErrInvalidWindow):
		return http.StatusBadRequest, outcomeInvalid
	case errors.Is(err, incident.ErrConfigMissing):
		return http.StatusInternalServerError, outcomeConfigMissing
	case errors.Is(err, incident.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, outcomeUnavailable
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}
