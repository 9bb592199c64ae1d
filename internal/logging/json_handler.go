package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"reelkeeper/internal/services"
)

// FieldErrorKind carries services.Kind of the first error attribute on a JSON record.
const FieldErrorKind = "error_kind"

// jsonHandler writes one JSON object per record and tags records that carry
// an error with its classification so journal failures, lookup misses and
// validation faults can be filtered apart.
type jsonHandler struct {
	slog.Handler
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return jsonHandler{Handler: slog.NewJSONHandler(w, &opts)}
}

func (h jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	var kind string
	hasKind := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == FieldErrorKind {
			hasKind = true
			return false
		}
		if kind == "" && attr.Value.Kind() == slog.KindAny {
			if err, ok := attr.Value.Any().(error); ok && err != nil {
				kind = services.Kind(err)
			}
		}
		return true
	})
	if kind != "" && !hasKind {
		record = record.Clone()
		record.AddAttrs(slog.String(FieldErrorKind, kind))
	}
	return h.Handler.Handle(ctx, record)
}

func (h jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return jsonHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h jsonHandler) WithGroup(name string) slog.Handler {
	return jsonHandler{Handler: h.Handler.WithGroup(name)}
}

// replaceJSONAttr renames the built-in keys to ts/level/msg and keeps
// timestamps in UTC with sub-second precision to line up with journal entries.
func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}
