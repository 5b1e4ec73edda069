// Package masking redacts secrets and PII-shaped substrings before a
// string reaches a log line or a plugin event payload (§10.3), adapted
// from the teacher's regex-pattern masking service but trimmed to a
// fixed built-in pattern set — there is no per-MCP-server registry in
// this domain, so the pattern/group resolution machinery the teacher
// built around config.MaskingConfig does not apply.
package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern is one named regex + its replacement, compiled once at
// package init.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns covers the secret/PII shapes most likely to leak into
// an LLM prompt, a response, or a plugin event payload: API keys,
// bearer tokens, emails, and phone numbers.
var builtinPatterns = []struct {
	name        string
	pattern     string
	replacement string
}{
	{"anthropic_api_key", `sk-ant-[A-Za-z0-9_-]{20,}`, "<MASKED_API_KEY>"},
	{"openai_api_key", `sk-[A-Za-z0-9]{20,}`, "<MASKED_API_KEY>"},
	{"bearer_token", `(?i)bearer\s+[A-Za-z0-9._-]{10,}`, "Bearer <MASKED_TOKEN>"},
	{"email", `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "<MASKED_EMAIL>"},
	{"phone_cn", `1[3-9]\d{9}`, "<MASKED_PHONE>"},
}

var compiled []*CompiledPattern

func init() {
	for _, p := range builtinPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			// A built-in pattern failing to compile is a packaging bug,
			// not a runtime condition; log and skip rather than panic so
			// one bad pattern can't take masking out entirely.
			slog.Error("masking: built-in pattern failed to compile", "pattern", p.name, "error", err)
			continue
		}
		compiled = append(compiled, &CompiledPattern{Name: p.name, Regex: re, Replacement: p.replacement})
	}
}

// Redact applies every built-in pattern to s and returns the masked
// result. Safe to call on empty or already-masked input.
func Redact(s string) string {
	for _, p := range compiled {
		s = p.Regex.ReplaceAllString(s, p.Replacement)
	}
	return s
}

// RedactMap applies Redact to every string value in data, recursing into
// nested maps and slices — the shape plugin event `data` payloads and
// LLM call-context maps actually take.
func RedactMap(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return Redact(t)
	case map[string]interface{}:
		return RedactMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	default:
		return v
	}
}

// RedactError wraps err so its message is masked when logged via %s/%v,
// matching the teacher's habit of masking at the log call site rather
// than mutating the original error.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: Redact(err.Error()), err: err}
}

// redactedError carries the masked message of err and unwraps to err,
// so errors.Is/errors.As still see the original error.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
