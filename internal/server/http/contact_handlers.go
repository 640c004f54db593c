package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/contacts/internal/server/models"
	"github.com/dmitrijs2005/contacts/internal/server/services"
)

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeViolations(w, violations{{Field: "id", Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}

func pageParams(r *http.Request, v *violations) (skip, limit int) {
	skip = v.intQuery(r, "skip", 0, 0, 0)
	limit = v.intQuery(r, "limit", services.DefaultLimit, 1, services.MaxLimit)
	return skip, limit
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}
	c, v := req.toContact()
	if !v.empty() {
		writeViolations(w, v)
		return
	}

	created, err := s.contacts.Create(r.Context(), currentUser(r.Context()).ID, c)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newContactResponse(created))
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	var v violations
	skip, limit := pageParams(r, &v)
	if !v.empty() {
		writeViolations(w, v)
		return
	}

	q := r.URL.Query()
	filter := models.ContactFilter{
		FirstName: strings.TrimSpace(q.Get("first_name")),
		LastName:  strings.TrimSpace(q.Get("last_name")),
		Email:     strings.TrimSpace(q.Get("email")),
	}

	page, err := s.contacts.List(r.Context(), currentUser(r.Context()).ID, filter, skip, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactPage(page))
}

func (s *Server) handleUpcomingBirthdays(w http.ResponseWriter, r *http.Request) {
	var v violations
	days := v.intQuery(r, "days", services.DefaultBirthdayDays, 1, services.MaxBirthdayDays)
	skip, limit := pageParams(r, &v)
	if !v.empty() {
		writeViolations(w, v)
		return
	}

	page, err := s.contacts.UpcomingBirthdays(r.Context(), currentUser(r.Context()).ID, days, skip, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactPage(page))
}

func (s *Server) handleSearchContacts(w http.ResponseWriter, r *http.Request) {
	var v violations
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	v.check("q", q, "required")
	limit := v.intQuery(r, "limit", services.DefaultLimit, 1, services.MaxLimit)
	if !v.empty() {
		writeViolations(w, v)
		return
	}

	found, err := s.contacts.Search(r.Context(), currentUser(r.Context()).ID, q, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactList(found))
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := s.contacts.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactResponse(c))
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		writeBadBody(w, err)
		return
	}
	update, v := parseContactPatch(fields)
	if !v.empty() {
		writeViolations(w, v)
		return
	}

	c, err := s.contacts.Update(r.Context(), currentUser(r.Context()).ID, id, update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactResponse(c))
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := s.contacts.Delete(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContactResponse(c))
}
