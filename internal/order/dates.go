package order

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

const dateLayout = "2006-01-02"

// maxRangeDays caps a single unavailable range so a malformed backend answer
// cannot blow up the set.
const maxRangeDays = 3660

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// expandRanges enumerates every day of every range, both ends inclusive,
// and returns the sorted distinct ISO dates.
func expandRanges(ranges []resource.DateRange) []string {
	seen := make(map[string]struct{})
	for _, r := range ranges {
		start, err := parseDate(r.StartDate)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping unavailable range with bad start date")
			continue
		}
		end, err := parseDate(r.EndDate)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping unavailable range with bad end date")
			continue
		}
		for d, n := start, 0; !d.After(end) && n < maxRangeDays; d, n = d.AddDate(0, 0, 1), n+1 {
			seen[d.Format(dateLayout)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// firstBlocked returns the first day of [start, end] found in disabled.
func firstBlocked(start, end time.Time, disabled []string) (string, bool) {
	if len(disabled) == 0 {
		return "", false
	}
	set := make(map[string]struct{}, len(disabled))
	for _, d := range disabled {
		set[d] = struct{}{}
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		if _, ok := set[key]; ok {
			return key, true
		}
	}
	return "", false
}
