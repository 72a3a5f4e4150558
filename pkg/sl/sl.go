package sl

import "log/slog"

// Err returns a slog attribute carrying the error message under the "error" key.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
