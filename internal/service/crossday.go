package service

import (
	"context"

	"github.com/routewise/routewise/internal/model"
)

// optimizeCrossDay rebalances unlocked customers across the day set, then
// solves each day with the rebalanced assignment.
func (c *Core) optimizeCrossDay(ctx context.Context, req OptimizeRequest, techs []model.Tech, customers []model.Customer, result *OptimizeResult) error {
	days := req.daySet()
	result.Summary.Days = days

	unlocked := make(map[string]bool, len(req.UnlockedCustomerIDs))
	for _, id := range req.UnlockedCustomerIDs {
		unlocked[id] = true
	}

	plan := balanceDays(customers, unlocked, days)

	for _, day := range days {
		var eligible []model.Customer
		for _, cust := range customers {
			if !plan[cust.ID][day] {
				continue
			}
			if cust.AssignedTechID == "" && !req.IncludeUnassigned {
				continue
			}
			eligible = append(eligible, cust)
		}
		if err := c.solveAndMerge(ctx, day, techs, eligible, req.Speed, result); err != nil {
			return err
		}
	}
	return nil
}

// balanceDays assigns each customer a set of service days. Locked customers
// (and those not in the unlocked set) keep their current days; unlocked
// single-day customers move to the least-loaded day, unlocked multi-day
// customers get the visit-count-variance-minimizing day combination.
func balanceDays(customers []model.Customer, unlocked map[string]bool, days []model.Weekday) map[string]map[model.Weekday]bool {
	inSet := make(map[model.Weekday]bool, len(days))
	for _, d := range days {
		inSet[d] = true
	}

	plan := make(map[string]map[model.Weekday]bool, len(customers))
	counts := make(map[model.Weekday]int, len(days))

	currentDays := func(cust model.Customer) map[model.Weekday]bool {
		cur := make(map[model.Weekday]bool)
		for _, d := range cust.ScheduleDays() {
			cur[d] = true
		}
		return cur
	}

	// Everyone counts toward the initial load, locked or not.
	for _, cust := range customers {
		cur := currentDays(cust)
		plan[cust.ID] = cur
		for d := range cur {
			counts[d]++
		}
	}

	for _, cust := range customers {
		if cust.Locked || !unlocked[cust.ID] {
			continue
		}
		cur := plan[cust.ID]

		if cust.DaysPerWeek <= 1 {
			var curDay model.Weekday
			for d := range cur {
				curDay = d
			}
			if !inSet[curDay] {
				continue
			}
			best := curDay
			for _, d := range days {
				if counts[d] < counts[best] {
					best = d
				}
			}
			if counts[best] < counts[curDay] {
				counts[curDay]--
				counts[best]++
				plan[cust.ID] = map[model.Weekday]bool{best: true}
			}
			continue
		}

		// Multi-day: try every k-combination of the day set.
		combos := combinations(days, cust.DaysPerWeek)
		if len(combos) == 0 {
			continue
		}
		bestVar := -1.0
		var bestCombo []model.Weekday
		for _, combo := range combos {
			v := varianceAfterMove(counts, cur, combo, days)
			if bestVar < 0 || v < bestVar {
				bestVar = v
				bestCombo = combo
			}
		}
		// Keep the current pattern on ties.
		if sameDays(cur, bestCombo) || varianceAfterMove(counts, cur, setToSlice(cur), days) <= bestVar {
			continue
		}
		for d := range cur {
			counts[d]--
		}
		next := make(map[model.Weekday]bool, len(bestCombo))
		for _, d := range bestCombo {
			counts[d]++
			next[d] = true
		}
		plan[cust.ID] = next
	}

	return plan
}

// varianceAfterMove computes the visit-count variance over the full day set
// if the customer moved from its current days to the candidate combination.
// Zero-count days stay in the denominator so every candidate is compared on
// the same population.
func varianceAfterMove(counts map[model.Weekday]int, cur map[model.Weekday]bool, combo []model.Weekday, days []model.Weekday) float64 {
	adjusted := make(map[model.Weekday]int, len(days))
	for _, d := range days {
		adjusted[d] = counts[d]
	}
	for d := range cur {
		if _, ok := adjusted[d]; ok {
			adjusted[d]--
		}
	}
	for _, d := range combo {
		adjusted[d]++
	}

	total := 0
	for _, d := range days {
		total += adjusted[d]
	}
	mean := float64(total) / float64(len(days))
	variance := 0.0
	for _, d := range days {
		diff := float64(adjusted[d]) - mean
		variance += diff * diff
	}
	return variance / float64(len(days))
}

// combinations enumerates all k-element subsets of days, preserving order.
func combinations(days []model.Weekday, k int) [][]model.Weekday {
	if k <= 0 || k > len(days) {
		return nil
	}
	var out [][]model.Weekday
	combo := make([]model.Weekday, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(combo) == k {
			picked := make([]model.Weekday, k)
			copy(picked, combo)
			out = append(out, picked)
			return
		}
		for i := start; i < len(days); i++ {
			combo = append(combo, days[i])
			rec(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	rec(0)
	return out
}

func sameDays(set map[model.Weekday]bool, combo []model.Weekday) bool {
	if len(set) != len(combo) {
		return false
	}
	for _, d := range combo {
		if !set[d] {
			return false
		}
	}
	return true
}

func setToSlice(set map[model.Weekday]bool) []model.Weekday {
	out := make([]model.Weekday, 0, len(set))
	for _, d := range model.AllWeekdays {
		if set[d] {
			out = append(out, d)
		}
	}
	return out
}
