// Package logger provides the slog setup shared by every binary: text output
// for development and JSON for production, both with trimmed source info.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// New sets up a *slog.Logger and returns it.
func New(level slog.Level, isProd bool, attrs ...slog.Attr) *slog.Logger {
	replacer := func(groups []string, a slog.Attr) slog.Attr {
		//we do not want that long file path, just the file name and line number
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				filename := filepath.Base(source.File)
				return slog.Attr{
					Key:   slog.SourceKey,
					Value: slog.StringValue(fmt.Sprintf("file:%s:%d", filename, source.Line)),
				}
			}
			return a
		}

		return a
	}

	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: replacer,
	}
	textHandler := slog.NewTextHandler(os.Stdout, opts).WithAttrs(attrs)
	jsonHandler := slog.NewJSONHandler(os.Stdout, opts).WithAttrs(attrs)

	return slog.New(newSwitchHandler(jsonHandler, textHandler, isProd))
}

// switchHandler picks the json or the text handler based on the environment.
type switchHandler struct {
	jsonHandler slog.Handler
	textHandler slog.Handler
	isProd      bool
}

func newSwitchHandler(jsonHandler, textHandler slog.Handler, isProd bool) *switchHandler {
	return &switchHandler{
		jsonHandler: jsonHandler,
		textHandler: textHandler,
		isProd:      isProd,
	}
}

func (sh *switchHandler) Handle(ctx context.Context, record slog.Record) error {
	if sh.isProd {
		return sh.jsonHandler.Handle(ctx, record)
	}
	return sh.textHandler.Handle(ctx, record)
}

func (sh *switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if sh.isProd {
		return sh.jsonHandler.Enabled(ctx, level)
	}
	return sh.textHandler.Enabled(ctx, level)
}

func (sh *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if sh.isProd {
		return sh.jsonHandler.WithAttrs(attrs)
	}
	return sh.textHandler.WithAttrs(attrs)
}

func (sh *switchHandler) WithGroup(name string) slog.Handler {
	if sh.isProd {
		return sh.jsonHandler.WithGroup(name)
	}
	return sh.textHandler.WithGroup(name)
}
