package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chefslot/internal/manager"
	"chefslot/internal/model"
)

type ruleRequest struct {
	DayOfWeek *int   `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (req ruleRequest) input() (manager.RuleInput, error) {
	if req.DayOfWeek == nil {
		return manager.RuleInput{}, model.Invalidf("day_of_week is required")
	}
	return manager.RuleInput{DayOfWeek: *req.DayOfWeek, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

// GET /api/v1/chefs/{chefID}/schedules
func (s *Server) handleRulesList(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	rules, err := s.schedule.ListRules(r.Context(), chefID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if rules == nil {
		rules = []model.WorkingRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// POST /api/v1/chefs/{chefID}/schedules
func (s *Server) handleRuleCreate(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in, err := decodeRule(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	rule, err := s.schedule.Create(r.Context(), chefID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// PUT /api/v1/chefs/{chefID}/schedules/{ruleID}
func (s *Server) handleRuleUpdate(w http.ResponseWriter, r *http.Request) {
	chefID, ruleID, err := chefAndID(r, "ruleID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in, err := decodeRule(r)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	rule, err := s.schedule.Update(r.Context(), chefID, ruleID, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DELETE /api/v1/chefs/{chefID}/schedules/{ruleID}
func (s *Server) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	chefID, ruleID, err := chefAndID(r, "ruleID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.schedule.Delete(r.Context(), chefID, ruleID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/chefs/{chefID}/schedules/days/{day}
func (s *Server) handleRulesDeleteDay(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	day, err := parseInt("day", chi.URLParam(r, "day"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	deleted, err := s.schedule.DeleteDay(r.Context(), chefID, day)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func decodeRule(r *http.Request) (manager.RuleInput, error) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		return manager.RuleInput{}, err
	}
	return req.input()
}

func chefAndID(r *http.Request, name string) (int64, int64, error) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, name)
	if err != nil {
		return 0, 0, err
	}
	return chefID, id, nil
}
