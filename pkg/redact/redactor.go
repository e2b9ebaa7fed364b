// Package redact implements the three redaction surfaces ProbySDK applies
// before any network payload or metadata map leaves the process: request/
// response headers, arbitrary metadata maps, and URL query parameters.
//
// Matching is case-insensitive on the configured name and substitution is
// always a fixed placeholder string — there is no pattern-sniffing here,
// unlike the teacher's Sanitizer; orig §4.10 calls for matching a
// *configured* name set, not detecting sensitive-looking values.
package redact

import (
	"net/url"
	"strings"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

// Redactor holds the configured name sets and placeholder; it is a pure
// function over its inputs and holds no mutable state, so a single
// instance is safe to share across goroutines without locking.
type Redactor struct {
	headerNames   map[string]struct{}
	metadataKeys  map[string]struct{}
	queryParams   map[string]struct{}
	placeholder   string
}

// New builds a Redactor from the configured name lists, lower-casing each
// so lookups never need to re-normalize the configured side.
func New(headerNames, metadataKeys, queryParams []string, placeholder string) *Redactor {
	if placeholder == "" {
		placeholder = "***"
	}
	return &Redactor{
		headerNames:  toLowerSet(headerNames),
		metadataKeys: toLowerSet(metadataKeys),
		queryParams:  toLowerSet(queryParams),
		placeholder:  placeholder,
	}
}

func toLowerSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

// RedactHeaders returns a copy of h where any key matching a configured
// redacted name (case-insensitive) maps to the placeholder.
func (r *Redactor) RedactHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if _, redacted := r.headerNames[strings.ToLower(k)]; redacted {
			out[k] = r.placeholder
		} else {
			out[k] = v
		}
	}
	return out
}

// RedactMetadata applies the same rule over a Metadata map, replacing
// matched values with a string placeholder value regardless of the
// original value's kind.
func (r *Redactor) RedactMetadata(m model.Metadata) model.Metadata {
	if m == nil {
		return nil
	}
	out := make(model.Metadata, len(m))
	for k, v := range m {
		if _, redacted := r.metadataKeys[strings.ToLower(k)]; redacted {
			out[k] = model.StringValue(r.placeholder)
		} else {
			out[k] = v
		}
	}
	return out
}

// RedactURL parses s and rewrites the value of any query parameter whose
// lowercased name is in the configured set, returning the re-serialized
// URL. An unparseable URL is returned unchanged.
func (r *Redactor) RedactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	changed := false
	for key := range q {
		if _, redacted := r.queryParams[strings.ToLower(key)]; redacted {
			q[key] = []string{r.placeholder}
			changed = true
		}
	}
	if !changed {
		return s
	}
	u.RawQuery = q.Encode()
	return u.String()
}
