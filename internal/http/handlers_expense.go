package http

import (
	"errors"
	"net/http"

	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/repository"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := core.ListQueryFromValues(r.URL.Query())
	page, err := s.expenses.List(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpList, "")
		return
	}
	OK(page).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpRead, id)
		return
	}
	OK(e).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	e, err := s.expenses.Create(r.Context(), req.input())
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate, "")
		return
	}
	s.invalidate(r.Context())
	Created(e).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	e, err := s.expenses.Update(r.Context(), id, req.patch())
	if err != nil {
		s.writeServiceError(w, r, err, log.OpUpdate, id)
		return
	}
	s.invalidate(r.Context())
	OK(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, log.OpDelete, id)
		return
	}
	s.invalidate(r.Context())
	NoContent().Write(w)
}

// writeServiceError maps storage and validation failures to a status code.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op, id string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFoundError(repository.ErrNotFound.Error()).Write(w)
	case isClientError(err):
		BadRequestError(err.Error()).Write(w)
	default:
		fields := log.NewFields()
		if id != "" {
			fields[log.FieldExpenseID] = id
		}
		log.FromContext(r.Context()).LogError(r.Context(), "Expense request failed", err, op, fields)
		InternalServerError(err.Error()).Write(w)
	}
}
