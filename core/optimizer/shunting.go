package optimizer

import "strings"

// maxShuntingCost is charged for unknown or missing stabling positions.
const maxShuntingCost = 5

// ShuntingCost estimates the cost of moving a trainset from its current
// stabling position into service, cheapest to most expensive. Positions are
// matched by substring so compound location codes ("DEPOT-BAY-2") resolve.
func ShuntingCost(location string) int {
	loc := strings.ToUpper(location)
	switch {
	case strings.Contains(loc, "STAB-A"):
		return 1
	case strings.Contains(loc, "STAB-B"):
		return 2
	case strings.Contains(loc, "STAB-C"):
		return 3
	case strings.Contains(loc, "DEPOT"):
		return 4
	default:
		return maxShuntingCost
	}
}
