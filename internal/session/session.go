// Package session defines lap log records and loads them from a data source.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

// SessionType names a session within a race weekend.
type SessionType string

const (
	Qualifying       SessionType = "Qualifying"
	Race             SessionType = "Race"
	Sprint           SessionType = "Sprint"
	SprintQualifying SessionType = "Sprint Qualifying"
	Practice1        SessionType = "Practice 1"
	Practice2        SessionType = "Practice 2"
	Practice3        SessionType = "Practice 3"
)

var sessionAliases = map[string]SessionType{
	"q":                 Qualifying,
	"qualifying":        Qualifying,
	"r":                 Race,
	"race":              Race,
	"s":                 Sprint,
	"sprint":            Sprint,
	"sq":                SprintQualifying,
	"ss":                SprintQualifying,
	"sprint qualifying": SprintQualifying,
	"sprint shootout":   SprintQualifying,
	"fp1":               Practice1,
	"practice 1":        Practice1,
	"fp2":               Practice2,
	"practice 2":        Practice2,
	"fp3":               Practice3,
	"practice 3":        Practice3,
}

// ParseSessionType accepts a session name or its short code ("Q", "R",
// "FP1", ...), case-insensitively.
func ParseSessionType(s string) (SessionType, error) {
	if t, ok := sessionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", errors.NewValidationError("session_type", "unknown session type", s)
}

// LapRecord is one row of a session's lap log. Timed is false when the data
// source has no lap time for the lap, for example an aborted out lap.
type LapRecord struct {
	DriverID     string
	DriverNumber int
	LapNumber    int
	Duration     time.Duration
	Timed        bool
	PitOutLap    bool
}

// Session identifies one session and, once loaded, carries its lap log in
// the order the data source returned it.
type Session struct {
	Year  int
	Round int
	Type  SessionType

	// Key is the data source's identifier for the session.
	Key       int
	EventName string
	StartDate time.Time

	Laps []LapRecord
}

func (s *Session) String() string {
	return fmt.Sprintf("%d round %d %s", s.Year, s.Round, s.Type)
}

// Source resolves and loads sessions.
type Source interface {
	// GetSession resolves the (year, round, type) triple to a session
	// without its laps.
	GetSession(ctx context.Context, year, round int, sessionType SessionType) (*Session, error)

	// LoadLaps fetches the full lap log of a resolved session.
	LoadLaps(ctx context.Context, s *Session) ([]LapRecord, error)
}

// Loader fetches complete sessions from a Source.
type Loader struct {
	source Source
	logger log.Logger
}

// NewLoader creates a Loader over source.
func NewLoader(source Source) *Loader {
	return &Loader{
		source: source,
		logger: log.GetLoggerWithName("session"),
	}
}

// Load resolves the session and fills in its lap log. Failures are returned
// wrapped with the session triple; nothing is retried.
func (l *Loader) Load(ctx context.Context, year, round int, sessionType SessionType) (*Session, error) {
	s, err := l.source.GetSession(ctx, year, round, sessionType)
	if err != nil {
		return nil, errors.Wrapf(err, "get session %d round %d %s", year, round, sessionType)
	}

	laps, err := l.source.LoadLaps(ctx, s)
	if err != nil {
		return nil, errors.Wrapf(err, "load laps for %s", s)
	}
	s.Laps = laps

	l.logger.Info("Session loaded",
		log.SeasonKey, year,
		log.RoundKey, round,
		log.SessionKey, string(sessionType),
		log.SessionIDKey, s.Key,
		"event", s.EventName,
		log.LapsKey, len(laps),
	)
	return s, nil
}
