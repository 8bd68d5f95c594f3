package openf1

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pitwall-labs/lapcast/internal/session"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

var _ session.Source = (*Client)(nil)

// Meeting is a race weekend or test event.
type Meeting struct {
	MeetingKey  int       `json:"meeting_key"`
	MeetingName string    `json:"meeting_name"`
	CountryName string    `json:"country_name"`
	DateStart   time.Time `json:"date_start"`
	Year        int       `json:"year"`
}

// IsTesting reports whether the meeting is a pre-season test, which does not
// count towards the round number.
func (m Meeting) IsTesting() bool {
	return strings.Contains(strings.ToLower(m.MeetingName), "testing")
}

// SessionInfo is one session of a meeting.
type SessionInfo struct {
	SessionKey  int       `json:"session_key"`
	SessionName string    `json:"session_name"`
	SessionType string    `json:"session_type"`
	MeetingKey  int       `json:"meeting_key"`
	DateStart   time.Time `json:"date_start"`
}

// Lap is a row of the laps endpoint. LapDuration is null for laps without
// a valid time.
type Lap struct {
	DriverNumber int      `json:"driver_number"`
	LapNumber    int      `json:"lap_number"`
	LapDuration  *float64 `json:"lap_duration"`
	IsPitOutLap  bool     `json:"is_pit_out_lap"`
}

// Driver is a row of the drivers endpoint.
type Driver struct {
	DriverNumber int    `json:"driver_number"`
	NameAcronym  string `json:"name_acronym"`
	FullName     string `json:"full_name"`
	TeamName     string `json:"team_name"`
}

// Meetings returns the championship meetings of year ordered by start date,
// with pre-season testing removed. Index i holds round i+1.
func (c *Client) Meetings(ctx context.Context, year int) ([]Meeting, error) {
	var all []Meeting
	if _, err := c.get(ctx, "meetings", url.Values{"year": {strconv.Itoa(year)}}, &all); err != nil {
		return nil, errors.Wrapf(err, "list meetings of %d", year)
	}

	rounds := make([]Meeting, 0, len(all))
	for _, m := range all {
		if !m.IsTesting() {
			rounds = append(rounds, m)
		}
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].DateStart.Before(rounds[j].DateStart)
	})
	return rounds, nil
}

// Sessions returns the sessions of a meeting.
func (c *Client) Sessions(ctx context.Context, meetingKey int) ([]SessionInfo, error) {
	var out []SessionInfo
	if _, err := c.get(ctx, "sessions", url.Values{"meeting_key": {strconv.Itoa(meetingKey)}}, &out); err != nil {
		return nil, errors.Wrapf(err, "list sessions of meeting %d", meetingKey)
	}
	return out, nil
}

// Laps returns the raw lap rows of a session.
func (c *Client) Laps(ctx context.Context, sessionKey int) ([]Lap, error) {
	var out []Lap
	if _, err := c.get(ctx, "laps", url.Values{"session_key": {strconv.Itoa(sessionKey)}}, &out); err != nil {
		return nil, errors.Wrapf(err, "list laps of session %d", sessionKey)
	}
	return out, nil
}

// Drivers returns the entry list of a session.
func (c *Client) Drivers(ctx context.Context, sessionKey int) ([]Driver, error) {
	var out []Driver
	if _, err := c.get(ctx, "drivers", url.Values{"session_key": {strconv.Itoa(sessionKey)}}, &out); err != nil {
		return nil, errors.Wrapf(err, "list drivers of session %d", sessionKey)
	}
	return out, nil
}

// sessionNames maps a session type to the names OpenF1 has used for it.
var sessionNames = map[session.SessionType][]string{
	session.SprintQualifying: {"Sprint Qualifying", "Sprint Shootout"},
}

func matchesType(name string, t session.SessionType) bool {
	names, ok := sessionNames[t]
	if !ok {
		names = []string{string(t)}
	}
	for _, n := range names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// GetSession resolves round N of year to its N-th championship meeting and
// picks the session of the requested type.
func (c *Client) GetSession(ctx context.Context, year, round int, sessionType session.SessionType) (*session.Session, error) {
	meetings, err := c.Meetings(ctx, year)
	if err != nil {
		return nil, err
	}
	if round < 1 || round > len(meetings) {
		return nil, errors.Wrapf(ErrSessionNotFound, "%d has %d rounds, requested round %d", year, len(meetings), round)
	}
	meeting := meetings[round-1]

	sessions, err := c.Sessions(ctx, meeting.MeetingKey)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if matchesType(s.SessionName, sessionType) {
			return &session.Session{
				Year:      year,
				Round:     round,
				Type:      sessionType,
				Key:       s.SessionKey,
				EventName: meeting.MeetingName,
				StartDate: s.DateStart,
			}, nil
		}
	}
	return nil, errors.Wrapf(ErrSessionNotFound, "no %s session at %s", sessionType, meeting.MeetingName)
}

// LoadLaps fetches the lap log of s and labels each lap with the driver's
// three-letter acronym. A driver missing from the entry list keeps their car
// number as identifier.
func (c *Client) LoadLaps(ctx context.Context, s *session.Session) ([]session.LapRecord, error) {
	laps, err := c.Laps(ctx, s.Key)
	if err != nil {
		return nil, err
	}
	drivers, err := c.Drivers(ctx, s.Key)
	if err != nil {
		return nil, err
	}

	acronyms := make(map[int]string, len(drivers))
	for _, d := range drivers {
		acronyms[d.DriverNumber] = d.NameAcronym
	}

	records := make([]session.LapRecord, 0, len(laps))
	unknown := make(map[int]bool)
	untimed := 0
	for _, l := range laps {
		id, ok := acronyms[l.DriverNumber]
		if !ok || id == "" {
			id = strconv.Itoa(l.DriverNumber)
			unknown[l.DriverNumber] = true
		}

		rec := session.LapRecord{
			DriverID:     id,
			DriverNumber: l.DriverNumber,
			LapNumber:    l.LapNumber,
			PitOutLap:    l.IsPitOutLap,
		}
		if l.LapDuration != nil && !math.IsNaN(*l.LapDuration) && *l.LapDuration > 0 {
			rec.Duration = time.Duration(math.Round(*l.LapDuration * float64(time.Second)))
			rec.Timed = true
		} else {
			untimed++
		}
		records = append(records, rec)
	}

	if untimed > 0 {
		errors.Warn(errors.NewDataConversionWarning("lap_duration", "untimed lap",
			fmt.Sprintf("%d of %d laps in session %d have a null, zero or NaN duration", untimed, len(laps), s.Key)))
	}

	if len(unknown) > 0 {
		c.logger.Warn("Laps from drivers missing in the entry list",
			log.SessionIDKey, s.Key,
			log.DriversKey, len(unknown),
		)
	}
	return records, nil
}
