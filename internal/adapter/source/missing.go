package source

import "time"

const dateLayout = "2006-01-02"

// MissingDates returns the days of year, up to and including today for the
// current year, whose YYYY-MM-DD tag is not in existing.
func MissingDates(year int, now time.Time, existing []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		have[tag] = struct{}{}
	}

	now = now.UTC()
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC); today.Before(end) {
		end = today
	}

	var missing []string
	for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); !d.After(end); d = d.AddDate(0, 0, 1) {
		tag := d.Format(dateLayout)
		if _, ok := have[tag]; !ok {
			missing = append(missing, tag)
		}
	}
	return missing
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
