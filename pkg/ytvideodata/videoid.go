package ytvideodata

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIdRe   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	pathIdRe    = regexp.MustCompile(`^/(?:embed|shorts|live|v)/([a-zA-Z0-9_-]{11})`)
	youtubeHost = map[string]bool{
		"youtube.com":       true,
		"www.youtube.com":   true,
		"m.youtube.com":     true,
		"music.youtube.com": true,
	}
)

// ParseVideoID extracts the 11 character video id from a YouTube URL or returns raw
// when it already is an id.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIdRe.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidVideoReference
	}

	var id string
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
		id = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	case youtubeHost[host]:
		if u.Path == "/watch" {
			id = u.Query().Get("v")
		} else if matches := pathIdRe.FindStringSubmatch(u.Path); len(matches) > 1 {
			id = matches[1]
		}
	}

	if !videoIdRe.MatchString(id) {
		return "", ErrInvalidVideoReference
	}

	return id, nil
}
