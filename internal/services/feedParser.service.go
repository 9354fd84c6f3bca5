package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/models"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/utils"
)

const (
	FEED_URI_PREFIX = "file:///C:/sharec/FFTBattleground-battle/"
	FEED_URI_SUFFIX = ".mp3"
	feedLeafElement = "leaf"
)

// RawTrack is one feed entry after title and duration normalization.
type RawTrack struct {
	Title string
	// DurationSeconds is nil when the feed value was missing or unparsable.
	DurationSeconds *int
	Duration        string
}

// ParseFeed turns a raw playlist document into tracks in feed order.
// Malformed entries are skipped and a decoding error ends parsing with
// whatever was read up to that point.
func ParseFeed(raw []byte, log logger.Logger) []RawTrack {
	log = log.Function("ParseFeed")

	tracks := make([]RawTrack, 0)
	if len(raw) == 0 {
		return tracks
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	skipped := 0

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("Feed decoding stopped early", "error", err, "parsed", len(tracks))
			break
		}

		element, ok := token.(xml.StartElement)
		if !ok || element.Name.Local != feedLeafElement {
			continue
		}

		track, ok := parseLeaf(element, log)
		if !ok {
			skipped++
			continue
		}
		tracks = append(tracks, track)
	}

	log.Debug("Parsed feed", "tracks", len(tracks), "skipped", skipped)
	return tracks
}

func parseLeaf(element xml.StartElement, log logger.Logger) (RawTrack, bool) {
	var uri, name, duration string
	for _, attr := range element.Attr {
		switch attr.Name.Local {
		case "uri":
			uri = attr.Value
		case "name":
			name = attr.Value
		case "duration":
			duration = attr.Value
		}
	}

	var title string
	switch {
	case uri != "":
		t, ok := titleFromURI(uri, log)
		if !ok {
			return RawTrack{}, false
		}
		title = t
	case name != "":
		if name == "Playlist" || strings.Contains(name, "node") {
			return RawTrack{}, false
		}
		title = cleanTitle(strings.TrimSuffix(name, FEED_URI_SUFFIX))
	default:
		return RawTrack{}, false
	}

	if title == "" {
		log.Debug("Skipping leaf with empty title", "uri", uri, "name", name)
		return RawTrack{}, false
	}

	seconds, formatted := parseFeedDuration(duration, title, log)
	return RawTrack{Title: title, DurationSeconds: seconds, Duration: formatted}, true
}

func titleFromURI(uri string, log logger.Logger) (string, bool) {
	if !strings.HasPrefix(uri, FEED_URI_PREFIX) || !strings.HasSuffix(uri, FEED_URI_SUFFIX) ||
		len(uri) < len(FEED_URI_PREFIX)+len(FEED_URI_SUFFIX) {
		log.Warn("Dropping leaf with unexpected uri", "uri", uri)
		return "", false
	}

	encoded := uri[len(FEED_URI_PREFIX) : len(uri)-len(FEED_URI_SUFFIX)]
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		log.Warn("Dropping leaf with invalid escape", "uri", uri, "error", err)
		return "", false
	}

	return cleanTitle(decoded), true
}

// cleanTitle drops bytes PostgreSQL would reject in a text column, since a
// percent-escape can decode to invalid UTF-8.
func cleanTitle(value string) string {
	value, _ = utils.CleanUTF8(value)
	return strings.Join(strings.Fields(strings.ReplaceAll(value, "_", " ")), " ")
}

func parseFeedDuration(value, title string, log logger.Logger) (*int, string) {
	trimmed := strings.TrimSpace(value)
	seconds, err := strconv.Atoi(trimmed)
	if err != nil {
		if trimmed != "" {
			log.Warn("Unparsable duration, using default", "title", title, "duration", value)
		}
		return nil, models.DefaultDuration
	}

	if seconds < 0 {
		log.Warn("Negative duration, using default", "title", title, "duration", seconds)
		seconds = 0
	}

	return &seconds, models.FormatDuration(seconds)
}
