package orbit

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidName is returned for names that are not orbit files.
var ErrInvalidName = errors.New("not a Sentinel-1 orbit file name")

const timeLayout = "20060102T150405"

// S1A_OPER_AUX_POEORB_OPOD_20210305T121400_V20210212T225942_20210214T005942.EOF
var namePattern = regexp.MustCompile(
	`^(S1[A-D])_OPER_AUX_(POEORB|RESORB)_OPOD_(\d{8}T\d{6})_V(\d{8}T\d{6})_(\d{8}T\d{6})\.EOF$`)

// Entry is one orbit file offered by the archive listing.
type Entry struct {
	Name    string
	URL     string
	Mission string
	Type    string // POEORB or RESORB
	Created time.Time
	Start   time.Time
	Stop    time.Time
}

// ParseName parses an orbit file name. URL is left empty.
func ParseName(name string) (Entry, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	var times [3]time.Time
	for i, s := range m[3:6] {
		t, err := time.Parse(timeLayout, s)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %s: %v", ErrInvalidName, name, err)
		}
		times[i] = t
	}
	return Entry{
		Name:    name,
		Mission: m[1],
		Type:    m[2],
		Created: times[0],
		Start:   times[1],
		Stop:    times[2],
	}, nil
}

// Covers reports whether the entry's validity window starts on the day
// before date and stops on the day after it, the layout of a precise
// orbit file for an acquisition on date.
func (e Entry) Covers(date time.Time) bool {
	day := truncateDay(date)
	return truncateDay(e.Start).Equal(day.AddDate(0, 0, -1)) &&
		truncateDay(e.Stop).Equal(day.AddDate(0, 0, 1))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
