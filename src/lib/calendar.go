package lib

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path"
	"time"

	"vitacal/src/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var calsvc *calendar.Service

func getCalendarClient(conf *oauth2.Config) (*http.Client, error) {
	secretsPath := os.Getenv("SECRETS_DIR")
	tokFile, err := os.Open(path.Join(secretsPath, "calendar-token.json"))
	if err != nil {
		return nil, err
	}
	defer tokFile.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(tokFile).Decode(tok); err != nil {
		return nil, err
	}

	cli := conf.Client(context.Background(), tok)
	return cli, nil
}

func GetCalendarService() (svc *calendar.Service, err error) {
	if calsvc != nil {
		return calsvc, nil
	}
	secretsPath := os.Getenv("SECRETS_DIR")
	b, err := os.ReadFile(path.Join(secretsPath, "calendar-credentials.json"))
	if err != nil {
		return nil, err
	}
	conf, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, err
	}
	cli, err := getCalendarClient(conf)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(context.Background(), option.WithHTTPClient(cli))
	if err != nil {
		return nil, err
	}
	calsvc = srv
	return srv, nil
}

// NewCalendarService replaces the calendar instance with a custom client implementation
func NewCalendarService(s *calendar.Service) {
	calsvc = s
}

// GAPIQueryFreeBusy asks the provider for the opaque busy spans of one
// calendar within [start, end). Event content is never requested.
func GAPIQueryFreeBusy(ctx context.Context, calendarId string, start, end time.Time) ([]types.BusyInterval, error) {
	s, err := GetCalendarService()
	if err != nil {
		return nil, err
	}
	req := calendar.FreeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items: []*calendar.FreeBusyRequestItem{
			{Id: calendarId},
		},
	}
	res, err := s.Freebusy.Query(&req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	cal, ok := res.Calendars[calendarId]
	if !ok {
		return []types.BusyInterval{}, nil
	}
	intervals := make([]types.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		bstart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			log.Printf("[FreeBusy] Skipping unparseable period start %q: %s\n", period.Start, err.Error())
			continue
		}
		bend, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			log.Printf("[FreeBusy] Skipping unparseable period end %q: %s\n", period.End, err.Error())
			continue
		}
		intervals = append(intervals, types.BusyInterval{Start: bstart.UTC(), End: bend.UTC()})
	}
	return intervals, nil
}
