// Package tags implements the bracket-tag convention the model uses to
// signal conversation outcomes alongside its natural-language reply.
// Parsing lives here and nowhere else, so the policy prompt and the
// synchronizer can be tested without each other.
package tags

import (
	"regexp"
	"strings"
)

// Recognized tag names.
const (
	EmailReceived  = "EMAIL_RECEIVED"
	PromiseFixed   = "PROMISE_FIXED"
	PaymentDate    = "PAYMENT_DATE"
	InquiryContent = "INQUIRY_CONTENT"
)

// Tag is one marker extracted from a raw reply. Payload is trimmed of
// leading and trailing whitespace; interior line breaks are preserved.
type Tag struct {
	Name    string
	Payload string
}

var (
	reEmailReceived = regexp.MustCompile(`\[EMAIL_RECEIVED:([^\[\]\n]*)\]`)
	rePromiseFixed  = regexp.MustCompile(`\[PROMISE_FIXED\]`)
	rePaymentDate   = regexp.MustCompile(`\[PAYMENT_DATE:([^\[\]\n]*)\]`)
	// Inquiry payloads are free text and may cross line boundaries; the
	// other payloads may not.
	reInquiryContent = regexp.MustCompile(`(?s)\[INQUIRY_CONTENT:(.*?)\]`)

	// Any bracketed span, recognized or not. Raw tags must never reach
	// the user-visible transcript.
	reAnyBracketed = regexp.MustCompile(`(?s)\[.*?\]`)
)

// Parse extracts the recognized tags from one raw reply. At most one tag
// per name is returned (the first occurrence wins, which keeps repeated
// emissions idempotent under overwrite semantics).
func Parse(raw string) []Tag {
	var out []Tag
	if m := reEmailReceived.FindStringSubmatch(raw); m != nil {
		out = append(out, Tag{Name: EmailReceived, Payload: strings.TrimSpace(m[1])})
	}
	if rePromiseFixed.MatchString(raw) {
		out = append(out, Tag{Name: PromiseFixed})
	}
	if m := rePaymentDate.FindStringSubmatch(raw); m != nil {
		out = append(out, Tag{Name: PaymentDate, Payload: strings.TrimSpace(m[1])})
	}
	if m := reInquiryContent.FindStringSubmatch(raw); m != nil {
		out = append(out, Tag{Name: InquiryContent, Payload: strings.TrimSpace(m[1])})
	}
	return out
}

// Strip removes every bracketed span from the reply and trims the result.
// It runs on every reply whether or not any recognized tag was found.
func Strip(raw string) string {
	return strings.TrimSpace(reAnyBracketed.ReplaceAllString(raw, ""))
}
