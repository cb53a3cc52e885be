// Package governance implements the stateless checks gating memory and
// injection writes: JSON serializability, an approximate token budget and a
// forbidden-phrase scan. A failed check blocks only the specific write; it is
// never fatal to the surrounding call.
package governance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultInjectTokenLimit caps a single injected object at roughly 40k tokens.
const DefaultInjectTokenLimit = 40_000

// forbiddenPhrases are prompt-control markers rejected from injected content.
var forbiddenPhrases = []string{
	"<system>",
	"ignore previous",
	"disregard prior",
	"you are chatgpt",
	"override instructions",
	"act as system",
	"reset role",
}

// Violation is a governance check failure. Recoverable and local: the caller
// skips the offending write and continues.
type Violation struct {
	Reason string
	Tokens int
	Limit  int
}

func (v *Violation) Error() string { return v.Reason }

// ApproxTokensFromText estimates tokens with the ~4 bytes/token heuristic.
func ApproxTokensFromText(s string) int {
	n := len(s)
	if n < 4 {
		return 1
	}
	return n / 4
}

// ApproxTokens estimates the token count of an arbitrary value via its
// compact JSON form.
func ApproxTokens(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return ApproxTokensFromText(fmt.Sprint(v))
	}
	return ApproxTokensFromText(string(b))
}

// CheckSerializable verifies the payload round-trips through JSON.
func CheckSerializable(payload any) error {
	if _, err := json.Marshal(payload); err != nil {
		return &Violation{Reason: fmt.Sprintf("value is not JSON-serializable: %v", err)}
	}
	return nil
}

// CheckTokenBudget verifies the payload fits the injection budget. A limit of
// zero means DefaultInjectTokenLimit.
func CheckTokenBudget(name string, payload any, limit int) error {
	if limit <= 0 {
		limit = DefaultInjectTokenLimit
	}
	tokens := ApproxTokens(payload)
	if tokens > limit {
		return &Violation{
			Reason: fmt.Sprintf("%q is ~%d tokens, exceeding the workspace injection limit %d; filter or summarize a smaller slice", name, tokens, limit),
			Tokens: tokens,
			Limit:  limit,
		}
	}
	return nil
}

// CheckSanitized scans the payload's text form for prompt-control phrases.
func CheckSanitized(payload any) error {
	var text string
	if s, ok := payload.(string); ok {
		text = s
	} else if b, err := json.Marshal(payload); err == nil {
		text = string(b)
	} else {
		text = fmt.Sprint(payload)
	}
	lower := strings.ToLower(text)
	for _, p := range forbiddenPhrases {
		if strings.Contains(lower, p) {
			return &Violation{Reason: "potential prompt-control phrases detected in injected content"}
		}
	}
	return nil
}

// Check runs all three gates in order: serializability, budget, phrase scan.
func Check(name string, payload any, limit int) error {
	if err := CheckSerializable(payload); err != nil {
		return err
	}
	if err := CheckTokenBudget(name, payload, limit); err != nil {
		return err
	}
	return CheckSanitized(payload)
}
