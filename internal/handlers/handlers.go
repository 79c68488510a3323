package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

func SendJSON(w http.ResponseWriter, status int, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return w.Write(payload)
}

func sendJSONOrLog(w http.ResponseWriter, log *logrus.Logger, v any) {
	sendStatusJSONOrLog(w, log, http.StatusOK, v)
}

func sendStatusJSONOrLog(w http.ResponseWriter, log *logrus.Logger, status int, v any) {
	n, err := SendJSON(w, status, v)
	if err != nil {
		if n == 0 {
			w.WriteHeader(http.StatusInternalServerError)
		}
		log.WithError(err).WithField("response", v).Error("unable to send response")
	}
}

// sendErrorOrLog writes status and {"error": err} as the body.
func sendErrorOrLog(w http.ResponseWriter, log *logrus.Logger, status int, err error) {
	sendStatusJSONOrLog(w, log, status, wrapError(err))
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}
