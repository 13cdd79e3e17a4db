package api

import (
	"net/http"

	"chefslot/internal/manager"
	"chefslot/internal/model"
)

const defaultListDays = 30

type blockRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

type rangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

// handleBlockedList lists blocked intervals between from and to, inclusive.
// Both default to a window starting today.
// GET /api/v1/chefs/{chefID}/blocked-dates?from=&to=
func (s *Server) handleBlockedList(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	q := r.URL.Query()

	from := model.DateOnly(s.now().UTC())
	if v := q.Get("from"); v != "" {
		if from, err = parseDate("from", v); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}
	to := from.AddDate(0, 0, defaultListDays)
	if v := q.Get("to"); v != "" {
		if to, err = parseDate("to", v); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	blocked, err := s.blocked.ListBlocked(r.Context(), chefID, from, to)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if blocked == nil {
		blocked = []model.BlockedInterval{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked_dates": blocked})
}

// POST /api/v1/chefs/{chefID}/blocked-dates
func (s *Server) handleBlockedCreate(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in, err := decodeBlock(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	b, err := s.blocked.Create(r.Context(), chefID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// PUT /api/v1/chefs/{chefID}/blocked-dates/{blockID}
func (s *Server) handleBlockedUpdate(w http.ResponseWriter, r *http.Request) {
	chefID, blockID, err := chefAndID(r, "blockID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in, err := decodeBlock(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	b, err := s.blocked.Update(r.Context(), chefID, blockID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DELETE /api/v1/chefs/{chefID}/blocked-dates/{blockID}
func (s *Server) handleBlockedDelete(w http.ResponseWriter, r *http.Request) {
	chefID, blockID, err := chefAndID(r, "blockID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.blocked.Delete(r.Context(), chefID, blockID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/chefs/{chefID}/blocked-dates/range
func (s *Server) handleBlockedRange(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req rangeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	from, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	to, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	created, err := s.blocked.CreateRange(r.Context(), chefID, manager.RangeInput{
		From:      from,
		To:        to,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"blocked_dates": created})
}

func decodeBlock(r *http.Request) (manager.BlockInput, error) {
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		return manager.BlockInput{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return manager.BlockInput{}, err
	}
	return manager.BlockInput{Date: date, StartTime: req.StartTime, EndTime: req.EndTime, Reason: req.Reason}, nil
}
