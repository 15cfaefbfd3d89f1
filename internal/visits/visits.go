// Package visits counts how many times a browser came back to the site.
// The counter lives in the session and grows at most once per elapsed
// second since the last recorded visit.
package visits

import (
	"time"

	"github.com/patric-chuzhbe/rango/internal/session"
)

const (
	// StoredLayout is how the last visit time is written to the session.
	StoredLayout = "2006-01-02 15:04:05.000000"

	parseLayout = "2006-01-02 15:04:05"
)

// Format renders t the way Track stores it.
func Format(t time.Time) string {
	return t.Format(StoredLayout)
}

// Count returns the stored visit count, 0 when nothing was tracked yet.
func Count(sess session.Session) int {
	return sess.Visits
}

// Track records a visit happening at now and returns the updated session
// together with the visit count to display.
func Track(sess session.Session, now time.Time) (session.Session, int) {
	visits := sess.Visits
	if visits == 0 {
		visits = 1
	}

	lastVisit, ok := parseLastVisit(sess.LastVisit)
	if !ok {
		return record(sess, visits, now), visits
	}

	if int64(now.Sub(lastVisit)/time.Second) > 0 {
		visits++
		return record(sess, visits, now), visits
	}

	return sess, visits
}

func record(sess session.Session, visits int, now time.Time) session.Session {
	sess.Visits = visits
	sess.LastVisit = Format(now)

	return sess
}

func parseLastVisit(value string) (time.Time, bool) {
	if len(value) < len(parseLayout) {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(parseLayout, value[:len(parseLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
