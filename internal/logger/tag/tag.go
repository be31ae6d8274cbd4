// Package tag provides standardized tag functions for structured logging.
//
// Use these functions instead of raw key strings so log output stays
// consistent across the codebase.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Group creates a tag for team/group identifiers.
func Group(id string) slog.Attr {
	return slog.String("group", id)
}

// Schedule creates a tag for schedule entry identifiers.
func Schedule(id string) slog.Attr {
	return slog.String("schedule", id)
}

// Lineup creates a tag for lineup entry identifiers.
func Lineup(id string) slog.Attr {
	return slog.String("lineup", id)
}

// Regatta creates a tag for regatta identifiers.
func Regatta(id string) slog.Attr {
	return slog.String("regatta", id)
}

// Scope creates a tag for cache scope keys.
func Scope(key string) slog.Attr {
	return slog.String("scope", key)
}

// Entity creates a tag for mutation target entity identifiers.
func Entity(id string) slog.Attr {
	return slog.String("entity", id)
}

// Kind creates a tag for mutation entity kinds.
func Kind(kind string) slog.Attr {
	return slog.String("kind", kind)
}

// Op creates a tag for mutation operations.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// Mutation creates a tag for mutation queue item identifiers.
func Mutation(id int64) slog.Attr {
	return slog.Int64("mutation", id)
}

// Attempt creates a tag for retry attempt counts.
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Count creates a tag for generic record counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// TTL creates a tag for freshness durations.
func TTL(d time.Duration) slog.Attr {
	return slog.Duration("ttl", d)
}

// URL creates a tag for remote endpoint URLs.
func URL(u string) slog.Attr {
	return slog.String("url", u)
}

// StatusCode creates a tag for remote HTTP status codes.
func StatusCode(code int) slog.Attr {
	return slog.Int("status-code", code)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}
