package upstream

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"chefslot/internal/model"
)

const cookingService = "cooking"

// CookingClient estimates cooking time for a menu, a dish list, or a chef's default.
type CookingClient struct {
	*client
}

func NewCookingClient(opts Options) *CookingClient {
	return &CookingClient{client: newClient(cookingService, opts)}
}

type cookingResponse struct {
	Hours float64 `json:"hours"`
}

func (r *cookingResponse) validate() error {
	if r.Hours <= 0 {
		return fmt.Errorf("non-positive cooking time: %.2f h", r.Hours)
	}
	return nil
}

type dishesRequest struct {
	DishIDs    []int64 `json:"dish_ids"`
	GuestCount int     `json:"guest_count"`
}

func (c *CookingClient) EstimateCookingTimeForMenu(ctx context.Context, menuID int64, guestCount int) (float64, error) {
	path := fmt.Sprintf("/api/v1/cooking/menus/%d?guests=%d", menuID, guestCount)
	key := fmt.Sprintf("menu:%d:%d", menuID, guestCount)
	return c.estimate("menu", func(out *cookingResponse) error {
		return c.get(ctx, "menu", path, key, out)
	})
}

func (c *CookingClient) EstimateCookingTimeForDishes(ctx context.Context, dishIDs []int64, guestCount int) (float64, error) {
	key := fmt.Sprintf("dishes:%s:%d", dishKey(dishIDs), guestCount)
	body := dishesRequest{DishIDs: dishIDs, GuestCount: guestCount}
	return c.estimate("dishes", func(out *cookingResponse) error {
		return c.post(ctx, "dishes", "/api/v1/cooking/dishes", key, body, out)
	})
}

func (c *CookingClient) EstimateMaxCookingTime(ctx context.Context, chefID int64, maxDishesPerMeal, guestCount int) (float64, error) {
	q := url.Values{}
	q.Set("max_dishes", strconv.Itoa(maxDishesPerMeal))
	q.Set("guests", strconv.Itoa(guestCount))
	path := fmt.Sprintf("/api/v1/cooking/chefs/%d/max?%s", chefID, q.Encode())
	key := fmt.Sprintf("max:%d:%d:%d", chefID, maxDishesPerMeal, guestCount)
	return c.estimate("max", func(out *cookingResponse) error {
		return c.get(ctx, "max", path, key, out)
	})
}

func (c *CookingClient) estimate(op string, fetch func(*cookingResponse) error) (float64, error) {
	var resp cookingResponse
	if err := fetch(&resp); err != nil {
		return 0, err
	}
	// Entries cached before validation existed may still be bad.
	if err := resp.validate(); err != nil {
		return 0, &model.UpstreamError{Service: cookingService, Op: op, Err: err}
	}
	return resp.Hours, nil
}

// dishKey is order-independent so [1,2] and [2,1] share a cache entry.
func dishKey(ids []int64) string {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
