package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pion/sdp/v3"
	"go.senan.xyz/taglib"
)

const (
	FormatMedia = "media"
	FormatSDP   = "sdp"
)

// FileInfo describes a local source file. Label falls back to the file name
// when no title tag is present.
type FileInfo struct {
	Path       string `json:"path"`
	Label      string `json:"label"`
	Format     string `json:"format"`
	DurationMS *int   `json:"durationMs,omitempty"`
	Streams    int    `json:"streams,omitempty"`
}

// Inspect checks a local file before it is handed to the engine. Tag read
// failures are not errors; a malformed session description is.
func Inspect(path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat source file: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("source %q is not a regular file", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".sdp") {
		return inspectSessionDescription(path)
	}

	info := FileInfo{
		Path:   path,
		Label:  fallbackLabel(path),
		Format: FormatMedia,
	}

	tags, err := taglib.ReadTags(path)
	if err == nil {
		if title := firstTagValue(tags, taglib.Title, "TITLE"); title != "" {
			info.Label = title
		}
	}

	properties, err := taglib.ReadProperties(path)
	if err == nil && properties.Length > 0 {
		durationMS := int(properties.Length.Milliseconds())
		if durationMS > 0 {
			info.DurationMS = &durationMS
		}
	}

	return info, nil
}

func inspectSessionDescription(path string) (FileInfo, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("read session description: %w", err)
	}

	var description sdp.SessionDescription
	if err := description.Unmarshal(body); err != nil {
		return FileInfo{}, fmt.Errorf("parse session description: %w", err)
	}

	streams := 0
	for _, media := range description.MediaDescriptions {
		if media == nil {
			continue
		}
		switch media.MediaName.Media {
		case "video", "audio":
			streams++
		}
	}
	if streams == 0 {
		return FileInfo{}, errors.New("session description has no audio or video streams")
	}

	label := strings.TrimSpace(string(description.SessionName))
	if label == "" || label == "-" {
		label = fallbackLabel(path)
	}

	return FileInfo{
		Path:    path,
		Label:   label,
		Format:  FormatSDP,
		Streams: streams,
	}, nil
}

func fallbackLabel(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		values, ok := tags[key]
		if !ok {
			continue
		}
		for _, value := range values {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}

	return ""
}
