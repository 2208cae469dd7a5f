package validator

import "fmt"

// Policy decides what happens to a batch when one candidate fails validation.
type Policy string

const (
	// PolicyAbortAll fails the whole document on the first invalid candidate.
	PolicyAbortAll Policy = "abort_all"
	// PolicySkipInvalid drops offending candidates, records them, and keeps the rest.
	PolicySkipInvalid Policy = "skip_invalid"
)

// ParsePolicy maps a config value to a Policy. Empty means PolicyAbortAll.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAbortAll:
		return PolicyAbortAll, nil
	case PolicySkipInvalid:
		return PolicySkipInvalid, nil
	default:
		return "", fmt.Errorf("unknown validation policy %q (want %s or %s)", s, PolicyAbortAll, PolicySkipInvalid)
	}
}
