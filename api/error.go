package main

import (
	"log/slog"
	"net/http"
)

func (app *APP) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal error", "method", r.Method, "path", r.URL.Path, "error", err)

	writeJSONError(w, http.StatusInternalServerError, "the server has a problem")
}

func (app *APP) badRequestError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("bad request", "method", r.Method, "path", r.URL.Path, "error", err)

	writeJSONError(w, http.StatusBadRequest, err.Error())
}
