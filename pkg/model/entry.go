package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceSite is the (file, function, line) triple identifying where an
// entry originated.
type SourceSite struct {
	File     string
	Function string
	Line     int
}

// LogEntry is a single immutable log record. Once constructed it is never
// mutated in place; Metadata.Clone() is used whenever a copy needs
// independent mutation (e.g. the redactor).
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Level     LogLevel
	Category  Category
	Message   string
	Site      SourceSite
	Metadata  Metadata
	Extra     *LogExtra
}

// NewEntry constructs an entry with a fresh random id and the given
// timestamp. Callers pass time.Now() in production and a fixed clock in
// tests.
func NewEntry(ts time.Time, level LogLevel, category Category, message string, site SourceSite, meta Metadata, extra *LogExtra) LogEntry {
	return LogEntry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Level:     level,
		Category:  category,
		Message:   message,
		Site:      site,
		Metadata:  meta,
		Extra:     extra,
	}
}

// WithMetadata returns a copy of the entry with its metadata replaced,
// used by the redactor which must never mutate the original entry in a
// buffer it doesn't own.
func (e LogEntry) WithMetadata(m Metadata) LogEntry {
	e.Metadata = m
	return e
}
