package api

import (
	"net/http"
	"strconv"
	"strings"

	"chefslot/internal/model"
)

type slotsResponse struct {
	Slots  []model.TimeSlot `json:"slots"`
	Errors []string         `json:"errors,omitempty"`
}

// handleSlots returns open windows of a chef on one date.
// GET /api/v1/chefs/{chefID}/slots?date=&location=&guests=&menu_id=&dish_ids=1,2&max_dishes=
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	q := r.URL.Query()

	date, err := parseDate("date", q.Get("date"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	guests, err := parseInt("guests", q.Get("guests"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	maxDishes := 0
	if v := q.Get("max_dishes"); v != "" {
		if maxDishes, err = parseInt("max_dishes", v); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}
	source, err := sourceFromQuery(q.Get("menu_id"), q.Get("dish_ids"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	slots, err := s.finder.FindSlots(r.Context(), chefID, date, q.Get("location"), source, guests, maxDishes)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: slots})
}

type searchDate struct {
	Date    string  `json:"date"`
	MenuID  *int64  `json:"menu_id,omitempty"`
	DishIDs []int64 `json:"dish_ids,omitempty"`
}

type searchRequest struct {
	Dates            []searchDate `json:"dates"`
	Location         string       `json:"location"`
	GuestCount       int          `json:"guest_count"`
	MaxDishesPerMeal int          `json:"max_dishes_per_meal,omitempty"`
}

// handleSlotSearch searches several dates at once. Dates that fail are reported in
// "errors" next to the slots of the others; when every date fails the first
// failure decides the status code.
// POST /api/v1/chefs/{chefID}/slots/search
func (s *Server) handleSlotSearch(w http.ResponseWriter, r *http.Request) {
	chefID, err := pathID(r, "chefID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var body searchRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	req := model.SlotRequest{
		ChefID:           chefID,
		CustomerLocation: body.Location,
		GuestCount:       body.GuestCount,
		MaxDishesPerMeal: body.MaxDishesPerMeal,
	}
	for _, d := range body.Dates {
		date, err := parseDate("date", d.Date)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		source, err := model.NewDurationSource(d.MenuID, d.DishIDs)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		req.Dates = append(req.Dates, model.DateRequest{Date: date, Source: source})
	}

	slots, err := s.finder.FindSlotsAcrossDates(r.Context(), req)
	if err == nil {
		writeJSON(w, http.StatusOK, slotsResponse{Slots: slots})
		return
	}
	failures := splitJoined(err)
	if slots == nil || len(failures) >= len(req.Dates) {
		s.writeDomainError(w, r, failures[0])
		return
	}

	resp := slotsResponse{Slots: slots}
	for _, f := range failures {
		resp.Errors = append(resp.Errors, f.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := j.Unwrap(); len(errs) > 0 {
			return errs
		}
	}
	return []error{err}
}

func sourceFromQuery(menuParam, dishesParam string) (model.DurationSource, error) {
	var menuID *int64
	if menuParam != "" {
		id, err := strconv.ParseInt(menuParam, 10, 64)
		if err != nil {
			return model.DurationSource{}, model.Invalidf("invalid menu_id %q", menuParam)
		}
		menuID = &id
	}

	var dishIDs []int64
	if dishesParam != "" {
		for _, part := range strings.Split(dishesParam, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return model.DurationSource{}, model.Invalidf("invalid dish id %q", part)
			}
			dishIDs = append(dishIDs, id)
		}
	}
	return model.NewDurationSource(menuID, dishIDs)
}
