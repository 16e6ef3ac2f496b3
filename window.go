package dailyai

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

var shorthandWindow = regexp.MustCompile(`^(\d+)([mhdw])$`)

// ParseSince turns a look-back window into the instant it starts at.
// It accepts ISO-8601 durations such as "P1D" or "PT6H" and the shorthand
// forms "30m", "6h", "1d" and "2w".
func ParseSince(window string, now time.Time) (time.Time, error) {
	window = strings.TrimSpace(window)
	if window == "" {
		return time.Time{}, fmt.Errorf("empty time window")
	}

	iso := strings.ToUpper(window)
	if m := shorthandWindow.FindStringSubmatch(strings.ToLower(window)); m != nil {
		switch m[2] {
		case "m":
			iso = "PT" + m[1] + "M"
		case "h":
			iso = "PT" + m[1] + "H"
		case "d":
			iso = "P" + m[1] + "D"
		case "w":
			iso = "P" + m[1] + "W"
		}
	}

	dur, err := duration.Parse(iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time window %q: %w", window, err)
	}
	d := dur.ToTimeDuration()
	if d <= 0 {
		return time.Time{}, fmt.Errorf("time window %q must be positive", window)
	}
	return now.Add(-d), nil
}
