package domain

import (
	"sort"
	"strings"
)

// HigherPriority orders contenders: higher score first, then earliest request
// time, then request ID so the order is total.
func HigherPriority(a, b Contender) bool {
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}

	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.Before(b.RequestedAt)
	}

	return strings.Compare(a.RequestID.String(), b.RequestID.String()) < 0
}

func SortContenders(cs []Contender) {
	sort.SliceStable(cs, func(i, j int) bool {
		return HigherPriority(cs[i], cs[j])
	})
}

func SortRequestsByPriority(reqs []AssignmentRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return HigherPriority(reqs[i].Contender(), reqs[j].Contender())
	})
}
