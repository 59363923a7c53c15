package api

import "net/http"

func (a *API) getEvent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalogToApiEvent(a.catalog.Catalog()))
}
