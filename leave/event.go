/*
event.go - Calendar-facing derivations of a Record

TITLE PRECEDENCE (exactly one form per record):
  1. Substitute named:      "<Substitute> sub for <Name> - <Type>"
  2. Sub Required, no name: "NEEDS SUB - <Name> - <Type>"
  3. Otherwise:             "<Name> (No Sub) - <Type>"

DESCRIPTION BLOCK:
  The description is a small key/value block, one "Key: value" field per
  line, fields separated by a blank line for readability. Values escape
  backslash as \\ and line breaks as \n so a multi-line comment can never
  forge an "Approval ID:" line.

  Descriptions written before escaping existed ("Approval ID: X" followed by
  free text) parse the same way; ParseApprovalID only needs the first field.
*/
package leave

import (
	"fmt"
	"strings"
)

const (
	DescKeyApprovalID = "Approval ID"
	DescKeyReason     = "Reason"
	DescKeyComments   = "Additional Comments"
)

// Title returns the calendar event summary for r.
func Title(r Record) string {
	name := r.FullName()
	switch {
	case strings.TrimSpace(r.Substitute) != "":
		return fmt.Sprintf("%s sub for %s - %s", strings.TrimSpace(r.Substitute), name, r.TimeOffType)
	case r.SubRequired:
		return fmt.Sprintf("NEEDS SUB - %s - %s", name, r.TimeOffType)
	default:
		return fmt.Sprintf("%s (No Sub) - %s", name, r.TimeOffType)
	}
}

// DescField is one key/value line of an event description.
type DescField struct {
	Key   string
	Value string
}

// Description returns the description block for r.
func Description(r Record) string {
	return EncodeDescription([]DescField{
		{DescKeyApprovalID, r.ApprovalID},
		{DescKeyReason, r.Reason},
		{DescKeyComments, r.Comments},
	})
}

func EncodeDescription(fields []DescField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+": "+escapeValue(f.Value))
	}
	return strings.Join(parts, "\n\n")
}

// DecodeDescription returns the fields of a description block in order.
// Lines without a "Key:" prefix are ignored.
func DecodeDescription(desc string) []DescField {
	var out []DescField
	for _, line := range strings.Split(strings.ReplaceAll(desc, "\r\n", "\n"), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		out = append(out, DescField{
			Key:   strings.TrimSpace(key),
			Value: unescapeValue(strings.TrimSpace(value)),
		})
	}
	return out
}

// ParseApprovalID extracts the Approval ID embedded in an event description.
func ParseApprovalID(desc string) (string, bool) {
	for _, f := range DecodeDescription(desc) {
		if f.Key == DescKeyApprovalID && f.Value != "" {
			return f.Value, true
		}
	}
	// Hand-edited events sometimes carry the label mid-line.
	label := DescKeyApprovalID + ":"
	if i := strings.Index(desc, label); i >= 0 {
		rest := desc[i+len(label):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		if id := strings.TrimSpace(unescapeValue(rest)); id != "" {
			return id, true
		}
	}
	return "", false
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\r\n", `\n`, "\n", `\n`, "\r", `\n`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n")
)

func escapeValue(v string) string   { return escaper.Replace(v) }
func unescapeValue(v string) string { return unescaper.Replace(v) }
