package stats

import (
	"fmt"
	"sort"
	"strings"

	"days-together/internal/notify"
	"days-together/internal/relation"
)

// Summary aggregates a snapshot of all stored counters.
type Summary struct {
	Total      int
	Active     int
	Ended      int
	LongestDay int
	AverageDay float64
	// Milestones counts active counters that already passed each milestone day.
	Milestones map[int]int
}

// Summarize builds a Summary from records. Only active counters count towards
// LongestDay, AverageDay and Milestones.
func Summarize(records []relation.UserRecord) Summary {
	s := Summary{Milestones: make(map[int]int)}
	sum := 0
	for _, r := range records {
		s.Total++
		switch r.Status {
		case relation.StatusActive:
			s.Active++
		case relation.StatusEnded:
			s.Ended++
			continue
		default:
			continue
		}
		sum += r.Day
		if r.Day > s.LongestDay {
			s.LongestDay = r.Day
		}
		for day := range notify.Milestones {
			if r.Day >= day {
				s.Milestones[day]++
			}
		}
	}
	if s.Active > 0 {
		s.AverageDay = float64(sum) / float64(s.Active)
	}
	return s
}

// Text renders the summary for the /stats reply.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Counters: %d (active %d, ended %d)\n", s.Total, s.Active, s.Ended)
	if s.Active == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Longest: %d days\nAverage: %.1f days\n", s.LongestDay, s.AverageDay)
	days := make([]int, 0, len(s.Milestones))
	for d := range s.Milestones {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, d := range days {
		fmt.Fprintf(&b, "- past day %d: %d\n", d, s.Milestones[d])
	}
	return b.String()
}
