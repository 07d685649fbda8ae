package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/duotrip/backend/internal/domain"
)

// pathUUID binds the named chi path parameter as a UUID.
// On failure it answers 422 and reports false.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, "invalid "+name+": "+err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID binds the optional named query parameter as a UUID. An absent
// parameter yields nil. On failure it answers 422 and reports false.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	var id *uuid.UUID
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &id); err != nil {
		requestError(w, "invalid "+name+": "+err.Error())
		return nil, false
	}
	return id, true
}

// pathDay parses the named path parameter as a YYYY-MM-DD day.
func pathDay(w http.ResponseWriter, r *http.Request, name string) (domain.DayKey, bool) {
	day, err := domain.ParseDayKey(chi.URLParam(r, name))
	if err != nil {
		requestError(w, "invalid "+name+": expected YYYY-MM-DD")
		return "", false
	}
	return day, true
}

func pageRequest(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	return domain.ParsePageRequest(q.Get("page"), q.Get("limit"))
}
