// Package fielderr holds the per-field error map shared by local form
// validation and server validation responses, plus the single place
// where server snake_case keys are translated to the client's
// camelCase field keys.
package fielderr

import "strings"

// Errors maps a field key to one human-readable message. A validation
// pass builds a fresh map; messages never accumulate across attempts.
type Errors map[string]string

// New returns an empty error map ready for one validation pass.
func New() Errors {
	return make(Errors)
}

// Set records a message for field unless the field already has one.
// The first message per field wins, matching how rules are ordered.
func (e Errors) Set(field, message string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = message
}

// Empty reports whether the pass found no errors.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Fields returns the keys that carry a message, in no defined order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	return fields
}

// CamelCase converts a server-side snake_case key to the client's
// camelCase convention, e.g. "event_start_date" → "eventStartDate".
// Keys without underscores pass through unchanged.
func CamelCase(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) == 1 {
		return key
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// MergeServer folds a server validation payload (snake_case keys, one
// or more messages per field) into e, translating keys through
// CamelCase and keeping only the first message per field. Fields the
// local pass already flagged keep their local message.
func (e Errors) MergeServer(server map[string][]string) {
	for key, messages := range server {
		if len(messages) == 0 {
			continue
		}
		e.Set(CamelCase(key), messages[0])
	}
}
