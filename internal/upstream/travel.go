package upstream

import (
	"context"
	"fmt"
	"net/url"

	"chefslot/internal/model"
)

const travelService = "travel"

// TravelClient estimates travel between two addresses.
type TravelClient struct {
	*client
}

func NewTravelClient(opts Options) *TravelClient {
	return &TravelClient{client: newClient(travelService, opts)}
}

type travelResponse struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

func (r *travelResponse) validate() error {
	if r.DurationHours < 0 || r.DistanceKm < 0 {
		return fmt.Errorf("negative estimate: %.2f km, %.2f h", r.DistanceKm, r.DurationHours)
	}
	return nil
}

func (c *TravelClient) EstimateTravel(ctx context.Context, from, to string) (model.TravelEstimate, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var resp travelResponse
	if err := c.get(ctx, "estimate_travel", "/api/v1/travel/estimate?"+q.Encode(), "estimate:"+from+"|"+to, &resp); err != nil {
		return model.TravelEstimate{}, err
	}
	return model.TravelEstimate{DistanceKm: resp.DistanceKm, DurationHours: resp.DurationHours}, nil
}
