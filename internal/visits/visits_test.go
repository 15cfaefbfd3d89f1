package visits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/rango/internal/session"
)

func TestTrack(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 500000000, time.Local)

	type tTestCase struct {
		name        string
		session     session.Session
		wantVisits  int
		wantSession session.Session
	}
	testCases := []tTestCase{
		{
			name:        "first visit",
			session:     session.Session{},
			wantVisits:  1,
			wantSession: session.Session{Visits: 1, LastVisit: "2024-03-10 12:00:00.500000"},
		},
		{
			name:        "ten seconds after the last visit",
			session:     session.Session{Visits: 3, LastVisit: "2024-03-10 11:59:50.000000"},
			wantVisits:  4,
			wantSession: session.Session{Visits: 4, LastVisit: "2024-03-10 12:00:00.500000"},
		},
		{
			name:        "same second as the last visit",
			session:     session.Session{Visits: 3, LastVisit: "2024-03-10 12:00:00.100000"},
			wantVisits:  3,
			wantSession: session.Session{Visits: 3, LastVisit: "2024-03-10 12:00:00.100000"},
		},
		{
			name:        "more than a day after the last visit",
			session:     session.Session{Visits: 7, LastVisit: "2024-03-09 12:00:00.000000"},
			wantVisits:  8,
			wantSession: session.Session{Visits: 8, LastVisit: "2024-03-10 12:00:00.500000"},
		},
		{
			name:        "unparsable last visit is recorded afresh",
			session:     session.Session{Visits: 2, LastVisit: "yesterday"},
			wantVisits:  2,
			wantSession: session.Session{Visits: 2, LastVisit: "2024-03-10 12:00:00.500000"},
		},
		{
			name:        "user id survives tracking",
			session:     session.Session{UserID: "u1"},
			wantVisits:  1,
			wantSession: session.Session{Visits: 1, LastVisit: "2024-03-10 12:00:00.500000", UserID: "u1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotSession, gotVisits := Track(tc.session, now)
			assert.Equal(t, tc.wantVisits, gotVisits)
			assert.Equal(t, tc.wantSession, gotSession)
		})
	}
}

func TestTrackNeverDecreases(t *testing.T) {
	sess := session.Session{}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	previous := 0
	for i := 0; i < 5; i++ {
		var visits int
		sess, visits = Track(sess, now)
		assert.GreaterOrEqual(t, visits, previous)
		assert.GreaterOrEqual(t, visits, 1)
		previous = visits
		now = now.Add(1500 * time.Millisecond)
	}
	assert.Equal(t, 5, Count(sess))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(session.Session{}))
	assert.Equal(t, 4, Count(session.Session{Visits: 4}))
}
