package utils

import (
	"fmt"
	"log"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"vitacal/src/db"
	"vitacal/src/lib"
	awslib "vitacal/src/lib/aws"
	"vitacal/src/lib/mailer"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/yeqown/go-qrcode"
)

// GetSchedule loads an expert's weekly schedule with its windows. The
// booking flow treats the result as read-only.
func GetSchedule(expertId uint) (*models.Schedule, error) {
	conn := db.GetDb()
	var schedule models.Schedule
	err := conn.
		Where(&models.Schedule{ExpertID: expertId}).
		Preload("Windows").
		First(&schedule).
		Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ParseHHMM converts a wall-clock "15:04" string into minutes from local
// midnight. "24:00" is accepted as an end-of-day boundary.
func ParseHHMM(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	return h*60 + m, nil
}

// ValidateWindows rejects window sets where spans on the same weekday
// overlap or run backwards.
func ValidateWindows(windows []types.ScheduleWindowInput) ([]models.AvailabilityWindow, error) {
	parsed := make([]models.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		start, err := ParseHHMM(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := ParseHHMM(w.End)
		if err != nil {
			return nil, err
		}
		if start >= end {
			return nil, fmt.Errorf("window %s-%s on weekday %d is empty or reversed", w.Start, w.End, w.Weekday)
		}
		parsed = append(parsed, models.AvailabilityWindow{
			Weekday:     w.Weekday,
			StartMinute: start,
			EndMinute:   end,
		})
	}
	for i := range parsed {
		for j := i + 1; j < len(parsed); j++ {
			if parsed[i].Weekday != parsed[j].Weekday {
				continue
			}
			if parsed[i].StartMinute < parsed[j].EndMinute && parsed[j].StartMinute < parsed[i].EndMinute {
				return nil, fmt.Errorf("windows overlap on weekday %d", parsed[i].Weekday)
			}
		}
	}
	return parsed, nil
}

// MeetingReference builds the human-facing booking code embedded in
// confirmation emails and the QR asset.
func MeetingReference(eventName string) string {
	id := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%s-%s", slug.Make(eventName), id)
}

// GenerateMeetingQR renders the meeting reference as a QR image and
// uploads it to the assets bucket, returning a presigned URL.
func GenerateMeetingQR(reference string) (*string, error) {
	qrc, err := qrcode.New(reference)
	if err != nil {
		return nil, err
	}
	tempdir := os.Getenv("TEMP_DIR")
	filename := fmt.Sprintf("%s.jpeg", reference)
	filepath := path.Join(tempdir, filename)
	if err := qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return nil, err
	}
	url, err := awslib.S3UploadAsset(filename, filepath)
	if err != nil {
		log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
		return nil, err
	}
	return url, nil
}

// SendMeetingConfirmation emails the guest their booking code and a QR
// link. Delivery failures are logged only; the meeting already exists.
func SendMeetingConfirmation(meeting *models.Meeting, expert *models.Expert, event *models.Event) {
	loc, err := time.LoadLocation(meeting.GuestTimezone)
	if err != nil {
		loc = time.UTC
	}
	startLocal := meeting.StartAt.In(loc)
	body := fmt.Sprintf(
		"Your booking %s with %s is confirmed for %s (%s).",
		meeting.Reference,
		expert.Name,
		startLocal.Format("Monday, 2 January 2006 15:04"),
		meeting.GuestTimezone,
	)
	if url, err := GenerateMeetingQR(meeting.Reference); err == nil {
		body = fmt.Sprintf("%s\n\nYour check-in code: %s", body, *url)
	}
	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: os.Getenv("MAIL_FROM_NAME"),
		To:       []string{meeting.GuestEmail},
		Subject:  fmt.Sprintf("Booking confirmed: %s", event.Name),
		Body:     body,
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Error queueing confirmation email for %s: %s\n", meeting.Reference, err.Error())
	}
}
