package wire

import (
	"time"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// timeLayout is ISO-8601 with fractional seconds, per orig §4.11.
const timeLayout = time.RFC3339Nano

// wireSourceSite mirrors model.SourceSite with JSON tags.
type wireSourceSite struct {
	File     string `json:"file,omitempty"`
	Function string `json:"function,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// wireExtra is the on-wire shape of model.LogExtra: exactly one of the
// four pointers is populated, matching the tagged-union convention the
// rest of the codec uses.
type wireExtra struct {
	Kind        string                   `json:"kind"`
	Network     *model.NetworkExtra     `json:"network,omitempty"`
	Crash       *wireCrashExtra         `json:"crash,omitempty"`
	UI          *model.UIExtra          `json:"ui,omitempty"`
	Performance *model.PerformanceExtra `json:"performance,omitempty"`
}

type wireCrashExtra struct {
	Signal        string             `json:"signal,omitempty"`
	ExceptionType string             `json:"exception_type,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Frames        []model.StackFrame `json:"frames,omitempty"`
	Thread        string             `json:"thread,omitempty"`
}

// Entry is the on-wire representation of a model.LogEntry.
type Entry struct {
	ID        string                   `json:"id"`
	Timestamp string                   `json:"timestamp"`
	Level     string                   `json:"level"`
	Category  string                   `json:"category"`
	Message   string                   `json:"message"`
	Site      wireSourceSite           `json:"site,omitempty"`
	Metadata  map[string]interface{}   `json:"metadata,omitempty"`
	Extra     *wireExtra               `json:"extra,omitempty"`
}

// EncodeEntry converts a model.LogEntry into its wire form.
func EncodeEntry(e model.LogEntry) Entry {
	we := Entry{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(timeLayout),
		Level:     e.Level.String(),
		Category:  e.Category.ID,
		Message:   e.Message,
		Site: wireSourceSite{
			File:     e.Site.File,
			Function: e.Site.Function,
			Line:     e.Site.Line,
		},
	}
	if len(e.Metadata) > 0 {
		we.Metadata = make(map[string]interface{}, len(e.Metadata))
		for k, v := range e.Metadata {
			we.Metadata[k] = metadataValueToJSON(v)
		}
	}
	if e.Extra != nil {
		we.Extra = encodeExtra(*e.Extra)
	}
	return we
}

func metadataValueToJSON(v model.MetadataValue) interface{} {
	switch v.Kind {
	case model.MetaString:
		return v.Str
	case model.MetaInt64:
		return v.I64
	case model.MetaDouble:
		return v.F64
	case model.MetaBool:
		return v.Bool
	default:
		return nil
	}
}

func encodeExtra(e model.LogExtra) *wireExtra {
	switch e.Kind {
	case model.ExtraNetwork:
		return &wireExtra{Kind: "network", Network: e.Network}
	case model.ExtraCrash:
		if e.Crash == nil {
			return nil
		}
		return &wireExtra{Kind: "crash", Crash: &wireCrashExtra{
			Signal:        e.Crash.Signal,
			ExceptionType: e.Crash.ExceptionType,
			Reason:        e.Crash.Reason,
			Frames:        e.Crash.Frames,
			Thread:        e.Crash.Thread,
		}}
	case model.ExtraUI:
		return &wireExtra{Kind: "ui", UI: e.UI}
	case model.ExtraPerformance:
		return &wireExtra{Kind: "performance", Performance: e.Performance}
	default:
		return nil
	}
}

// DecodeEntry converts a wire Entry back into a model.LogEntry. Malformed
// timestamps fall back to the zero time rather than failing the whole
// decode — the journal's "a decode failure on a line skips that line
// only" policy operates one level up, at the batch/line granularity.
func DecodeEntry(we Entry) model.LogEntry {
	ts, _ := time.Parse(timeLayout, we.Timestamp)
	level, _ := model.ParseLevel(we.Level)

	var meta model.Metadata
	if len(we.Metadata) > 0 {
		meta = make(model.Metadata, len(we.Metadata))
		for k, v := range we.Metadata {
			meta[k] = jsonToMetadataValue(v)
		}
	}

	var extra *model.LogExtra
	if we.Extra != nil {
		extra = decodeExtra(*we.Extra)
	}

	return model.LogEntry{
		ID:        we.ID,
		Timestamp: ts,
		Level:     level,
		Category:  model.Category{ID: we.Category},
		Message:   we.Message,
		Site: model.SourceSite{
			File:     we.Site.File,
			Function: we.Site.Function,
			Line:     we.Site.Line,
		},
		Metadata: meta,
		Extra:    extra,
	}
}

func jsonToMetadataValue(v interface{}) model.MetadataValue {
	switch t := v.(type) {
	case string:
		return model.StringValue(t)
	case bool:
		return model.BoolValue(t)
	case float64:
		if t == float64(int64(t)) {
			return model.IntValue(int64(t))
		}
		return model.DoubleValue(t)
	default:
		return model.StringValue("")
	}
}

func decodeExtra(we wireExtra) *model.LogExtra {
	switch we.Kind {
	case "network":
		if we.Network == nil {
			return nil
		}
		extra := model.NewNetworkExtra(*we.Network)
		return &extra
	case "crash":
		if we.Crash == nil {
			return nil
		}
		extra := model.NewCrashExtra(model.CrashExtra{
			Signal:        we.Crash.Signal,
			ExceptionType: we.Crash.ExceptionType,
			Reason:        we.Crash.Reason,
			Frames:        we.Crash.Frames,
			Thread:        we.Crash.Thread,
		})
		return &extra
	case "ui":
		if we.UI == nil {
			return nil
		}
		extra := model.NewUIExtra(*we.UI)
		return &extra
	case "performance":
		if we.Performance == nil {
			return nil
		}
		extra := model.NewPerformanceExtra(*we.Performance)
		return &extra
	default:
		return nil
	}
}
