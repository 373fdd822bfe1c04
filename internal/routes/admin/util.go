package admin

import (
	"log/slog"
)

// slogErr renders a possibly-nil error as a slog attribute without every
// call site having to guard against a nil err.Error() panic.
func slogErr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
