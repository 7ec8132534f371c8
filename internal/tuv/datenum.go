package tuv

import (
	"math"
	"time"
)

// datenum of 1970-01-01 00:00:00.
const unixEpochDatenum = 719529

// DatenumToTime converts a MATLAB datenum (days since year 0) to UTC,
// rounded to the millisecond.
func DatenumToTime(d float64) time.Time {
	ms := math.Round((d - unixEpochDatenum) * 86400e3)
	return time.UnixMilli(int64(ms)).UTC()
}
