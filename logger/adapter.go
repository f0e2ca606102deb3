package logger

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// event adapts a zerolog event to LogEvent. A nil zerolog event (level disabled)
// is safe to use: zerolog treats every call on it as a no-op.
type event struct {
	ev     *zerolog.Event
	filter *SensitiveDataFilter
}

var _ LogEvent = event{}

func (e event) Msg(msg string) {
	e.ev.Msg(msg)
}

func (e event) Msgf(format string, args ...any) {
	e.ev.Msgf(format, args...)
}

func (e event) Err(err error) LogEvent {
	e.ev = e.ev.Err(err)
	return e
}

// Str masks the value when the key looks sensitive or the value is a bearer
// credential or a URL with a password
func (e event) Str(key, value string) LogEvent {
	e.ev = e.ev.Str(key, e.filter.FilterString(key, value))
	return e
}

// Stringer renders v through its String method, so masked types such as
// tokenstore.Credential stay masked. A nil v logs null.
func (e event) Stringer(key string, v fmt.Stringer) LogEvent {
	if v == nil {
		e.ev = e.ev.Interface(key, nil)
		return e
	}
	return e.Str(key, v.String())
}

func (e event) Int(key string, value int) LogEvent {
	e.ev = e.ev.Int(key, value)
	return e
}

func (e event) Int64(key string, value int64) LogEvent {
	e.ev = e.ev.Int64(key, value)
	return e
}

func (e event) Bool(key string, value bool) LogEvent {
	e.ev = e.ev.Bool(key, value)
	return e
}

func (e event) Dur(key string, d time.Duration) LogEvent {
	e.ev = e.ev.Dur(key, d)
	return e
}

// Any logs v as JSON after masking sensitive keys at every nesting level
func (e event) Any(key string, v any) LogEvent {
	e.ev = e.ev.Interface(key, e.filter.FilterValue(key, v))
	return e
}
