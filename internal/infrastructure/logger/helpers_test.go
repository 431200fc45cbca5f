package logger

import "time"

func timeNowMinus(ms int) time.Time {
	return time.Now().Add(-time.Duration(ms) * time.Millisecond)
}
