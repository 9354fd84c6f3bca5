package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nowPlayingPattern = regexp.MustCompile(`^Now Playing: (?P<title>.+) - Duration: (?P<seconds>\d+) seconds$`)

// PlayEvent is a detected "now playing" announcement.
type PlayEvent struct {
	Title           string    `json:"title"`
	DurationSeconds int       `json:"durationSeconds"`
	DetectedAt      time.Time `json:"detectedAt"`
}

// PlayEventDetector matches the announcer's exact line format. Anything that
// deviates, including surrounding whitespace, is not a play.
type PlayEventDetector struct {
	announcer string
}

func NewPlayEventDetector(announcer string) *PlayEventDetector {
	return &PlayEventDetector{announcer: strings.TrimSpace(announcer)}
}

func (d *PlayEventDetector) Detect(text string) (PlayEvent, bool) {
	match := nowPlayingPattern.FindStringSubmatch(text)
	if match == nil {
		return PlayEvent{}, false
	}

	title := match[nowPlayingPattern.SubexpIndex("title")]
	if strings.TrimSpace(title) == "" {
		return PlayEvent{}, false
	}

	seconds, err := strconv.Atoi(match[nowPlayingPattern.SubexpIndex("seconds")])
	if err != nil {
		return PlayEvent{}, false
	}

	return PlayEvent{
		Title:           title,
		DurationSeconds: seconds,
		DetectedAt:      time.Now().UTC(),
	}, true
}

// DetectFrom applies the announcer filter before Detect. An empty announcer
// accepts every author.
func (d *PlayEventDetector) DetectFrom(author, text string) (PlayEvent, bool) {
	if d.announcer != "" && !strings.EqualFold(strings.TrimSpace(author), d.announcer) {
		return PlayEvent{}, false
	}
	return d.Detect(text)
}
