package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chefslot/internal/model"
)

var (
	slotsChefID    int64
	slotsDates     []string
	slotsLocation  string
	slotsGuests    int
	slotsMenuID    int64
	slotsDishIDs   []int64
	slotsMaxDishes int
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Search open windows of a chef",
	Long: `Run one slot search against the configured database and estimators and print the result as JSON.

Examples:
  chefslot slots --chef 7 --date 2030-03-06 --location "Berlin" --guests 4
  chefslot slots --chef 7 --date 2030-03-06 --date 2030-03-07 --location "Berlin" --guests 4 --menu 3
`,
	RunE: runSlots,
}

func init() {
	f := slotsCmd.Flags()
	f.Int64Var(&slotsChefID, "chef", 0, "Chef id")
	f.StringArrayVar(&slotsDates, "date", nil, "Date to search (YYYY-MM-DD), repeatable")
	f.StringVar(&slotsLocation, "location", "", "Customer location")
	f.IntVar(&slotsGuests, "guests", 0, "Guest count")
	f.Int64Var(&slotsMenuID, "menu", 0, "Estimate cooking time from this menu")
	f.Int64SliceVar(&slotsDishIDs, "dishes", nil, "Estimate cooking time from these dishes")
	f.IntVar(&slotsMaxDishes, "max-dishes", 0, "Dish count for the chef default estimate (0 uses the chef's own)")
	_ = slotsCmd.MarkFlagRequired("chef")
	_ = slotsCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(slotsCmd)
}

func runSlots(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	var menuID *int64
	if slotsMenuID != 0 {
		menuID = &slotsMenuID
	}
	source, err := model.NewDurationSource(menuID, slotsDishIDs)
	if err != nil {
		return err
	}

	req := model.SlotRequest{
		ChefID:           slotsChefID,
		CustomerLocation: slotsLocation,
		GuestCount:       slotsGuests,
		MaxDishesPerMeal: slotsMaxDishes,
	}
	for _, s := range slotsDates {
		d, err := model.ParseDate(s)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", s)
		}
		req.Dates = append(req.Dates, model.DateRequest{Date: d, Source: source})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	slots, searchErr := a.finder.FindSlotsAcrossDates(ctx, req)
	if slots == nil && searchErr != nil {
		return searchErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(slots); err != nil {
		return err
	}
	if searchErr != nil {
		logger.Warn().Err(searchErr).Msg("Some dates failed")
		return searchErr
	}
	return nil
}
