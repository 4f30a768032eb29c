// In file: internal/version/version.go

// Package version holds the logic versions that take part in cache keys.
//
// A cached evaluation is only valid for the prompt templates and tool schema
// that produced it. Bumping a version here makes every older key unreachable,
// so stale results age out through their TTL instead of being served.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// ComponentVersions must be bumped by hand before deploying a change to the
// component it names.
var ComponentVersions = struct {
	// Tools covers the calculate tool schema and the arithmetic it runs.
	Tools string
	// PromptLogic covers default prompts and the orchestration loops.
	PromptLogic string
	// Reducer covers number formatting and expression rewriting.
	Reducer string
}{
	Tools:       "v1.0",
	PromptLogic: "v1.0",
	Reducer:     "v1.1",
}

// spaceAroundSymbol matches an operator or parenthesis with the whitespace on
// either side of it.
var spaceAroundSymbol = regexp.MustCompile(`\s*([+\-*/()])\s*`)

// NormalizeExpression is the form an expression takes inside a cache key.
// Whitespace next to an operator or parenthesis carries no meaning and is
// dropped, so "2+3" and "2 + 3" normalize alike. Whitespace between two digits
// is kept as a single space: "1 2 + 3" is a different input from "12 + 3" and
// interpreting it is left to the model.
func NormalizeExpression(expression string) string {
	collapsed := strings.Join(strings.Fields(expression), " ")
	return spaceAroundSymbol.ReplaceAllString(collapsed, "$1")
}

// GenerateVersionedCacheKey builds a key for an evaluation from the
// normalized expression.
//
// Example output: "eval:reducing:gpt-4o-mini:a1b2c3d4...:tv1.0_pv1.0_rv1.1"
func GenerateVersionedCacheKey(prefix, mode, model, expression string) string {
	sum := sha256.Sum256([]byte(NormalizeExpression(expression)))

	versionString := fmt.Sprintf("tv%s_pv%s_rv%s",
		ComponentVersions.Tools,
		ComponentVersions.PromptLogic,
		ComponentVersions.Reducer,
	)
	return fmt.Sprintf("%s:%s:%s:%s:%s", prefix, mode, model, hex.EncodeToString(sum[:]), versionString)
}
