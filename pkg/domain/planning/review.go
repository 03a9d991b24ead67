package planning

import (
	"encoding/json"
	"regexp"
	"strings"
)

// VerdictKind is the outcome of reviewing a performed task.
type VerdictKind string

const (
	VerdictConfirmed VerdictKind = "confirmed"
	VerdictNeedsFix  VerdictKind = "needs_fix"
	VerdictReplan    VerdictKind = "replan"
)

// ReviewVerdict is the parsed answer of a task review. Reason is empty
// for VerdictConfirmed.
type ReviewVerdict struct {
	Kind   VerdictKind `json:"verdict"`
	Reason string      `json:"reason,omitempty"`
}

var reviewJSONBlock = regexp.MustCompile("(?s)```json(.*?)```")

// ParseReviewVerdict reads a review response. Accepted forms, checked on
// the first non-empty line: "confirmed", "needs_fix: <reason>",
// "error: <reason>" and "replan[: <reason>]". A fenced json object with
// verdict and reason fields is accepted as well.
func ParseReviewVerdict(text string) (ReviewVerdict, error) {
	if m := reviewJSONBlock.FindStringSubmatch(text); m != nil {
		var v ReviewVerdict
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &v); err == nil {
			if kind, ok := normalizeVerdict(string(v.Kind)); ok {
				v.Kind = kind
				if kind == VerdictConfirmed {
					v.Reason = ""
				}
				return v, nil
			}
		}
	}

	line := firstLine(text)
	head, reason, _ := strings.Cut(line, ":")
	head = strings.Trim(strings.ToLower(strings.TrimSpace(head)), "*`. ")
	reason = strings.TrimSpace(reason)

	kind, ok := normalizeVerdict(head)
	if !ok {
		return ReviewVerdict{}, &ReviewParseError{Raw: text}
	}
	switch kind {
	case VerdictConfirmed:
		return ReviewVerdict{Kind: VerdictConfirmed}, nil
	case VerdictNeedsFix:
		if reason == "" {
			reason = "unspecified error"
		}
	}
	return ReviewVerdict{Kind: kind, Reason: reason}, nil
}

func normalizeVerdict(s string) (VerdictKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "confirm", "ok":
		return VerdictConfirmed, true
	case "needs_fix", "needs fix", "error", "fix":
		return VerdictNeedsFix, true
	case "replan":
		return VerdictReplan, true
	}
	return "", false
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
