package player

const mpvBufferingProperty = "cache-buffering-state"

type endFileReason int

const (
	endFileOther endFileReason = iota
	endFileEOF
	endFileError
)

// translateEndFile maps an end-of-file notification onto a session event.
// Stops, quits and redirects produce nothing.
func translateEndFile(reason endFileReason, cause error) (Event, bool) {
	switch reason {
	case endFileEOF:
		return EndReachedEvent(), true
	case endFileError:
		message := "playback failed"
		if cause != nil {
			message = cause.Error()
		}
		return ErrorEvent(message), true
	default:
		return Event{}, false
	}
}

func translatePropertyChange(name string, data any) (Event, bool) {
	if name != mpvBufferingProperty {
		return Event{}, false
	}

	percent, ok := asFloat64(data)
	if !ok {
		return Event{}, false
	}

	return BufferingEvent(percent), true
}

// reloadTracker records whether the current media has to be loaded again
// before it can play. mpv drops the entry on stop and at end of file.
type reloadTracker struct {
	pending bool
}

func (r *reloadTracker) loaded() {
	r.pending = false
}

func (r *reloadTracker) dropped() {
	r.pending = true
}

func (r *reloadTracker) needed(hasMedia bool) bool {
	return r.pending && hasMedia
}

func asFloat64(value any) (float64, bool) {
	switch cast := value.(type) {
	case float64:
		return cast, true
	case float32:
		return float64(cast), true
	case int:
		return float64(cast), true
	case int64:
		return float64(cast), true
	default:
		return 0, false
	}
}
