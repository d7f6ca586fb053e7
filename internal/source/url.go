package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	rtspurl "github.com/aler9/gortsplib/v2/pkg/url"
)

var supportedSchemes = map[string]struct{}{
	"rtsp":  {},
	"rtsps": {},
	"http":  {},
	"https": {},
	"rtmp":  {},
	"rtmps": {},
	"rtp":   {},
	"udp":   {},
	"srt":   {},
}

type URLInfo struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Label  string `json:"label"`
	RTSP   bool   `json:"rtsp"`
}

// ParseURL validates a network source URL. The label never carries
// credentials.
func ParseURL(raw string) (URLInfo, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return URLInfo{}, errors.New("url is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return URLInfo{}, fmt.Errorf("parse url: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if _, ok := supportedSchemes[scheme]; !ok {
		return URLInfo{}, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	if scheme == "rtsp" || scheme == "rtsps" {
		rtspURL, err := rtspurl.Parse(trimmed)
		if err != nil {
			return URLInfo{}, fmt.Errorf("parse rtsp url: %w", err)
		}
		parsed = (*url.URL)(rtspURL)
	}

	if parsed.Host == "" {
		return URLInfo{}, errors.New("url host is required")
	}

	return URLInfo{
		Scheme: scheme,
		Host:   parsed.Host,
		Label:  redactedLabel(parsed),
		RTSP:   scheme == "rtsp" || scheme == "rtsps",
	}, nil
}

func redactedLabel(parsed *url.URL) string {
	clone := *parsed
	clone.User = nil
	return clone.String()
}
