// Package suggest asks an external model for source-key aliases of target
// attributes that static rules and the equivalence cache could not resolve.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/flatten"
)

// Provider proposes aliases for missing attribute ids. Implementations
// return an empty cache, not an error, when the model has nothing to say.
type Provider interface {
	Suggest(ctx context.Context, categoryID string, missing []string, preview string) (equivalence.Cache, error)
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, categoryID string, missing []string, preview string) (equivalence.Cache, error)

// Suggest implements Provider.
func (f Func) Suggest(ctx context.Context, categoryID string, missing []string, preview string) (equivalence.Cache, error) {
	return f(ctx, categoryID, missing, preview)
}

// Preview renders the first maxEntries entries of rec as "key: value"
// lines, stopping before the text would exceed maxChars. Non-positive
// limits fall back to the defaults.
func Preview(rec *flatten.Record, maxEntries, maxChars int) string {
	if maxEntries <= 0 {
		maxEntries = constants.PreviewEntries
	}
	if maxChars <= 0 {
		maxChars = constants.PreviewChars
	}

	var b strings.Builder
	n := 0
	rec.Each(func(key, value string) bool {
		if n == maxEntries {
			return false
		}
		line := key + ": " + value
		extra := len(line)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > maxChars {
			return false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		n++
		return true
	})
	return b.String()
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(categoryID string, missing []string, preview string) string {
	ids, _ := json.Marshal(missing)
	return fmt.Sprintf(`Find equivalences between marketplace attributes and the keys of a source product JSON.
Category: %s
Missing attributes:
%s
Source JSON (flattened summary):
%s
Rules:
- Use real keys from the JSON, do not invent keys.
- Return JSON in the form:
{"equivalences": {"COLOR": ["color"], "MATERIAL": ["material"]}}
`, categoryID, ids, preview)
}

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse extracts the equivalences object from a model reply. The
// reply may wrap the JSON in prose or code fences. Each id maps to a single
// alias or a list of aliases; ids left without aliases are dropped. A reply
// without a JSON object yields an empty cache and a ParseError.
func ParseResponse(text string) (equivalence.Cache, error) {
	match := objectPattern.FindString(text)
	if match == "" {
		return equivalence.Cache{}, errors.NewParseError("json", "suggestion", "no JSON object in reply", nil)
	}

	var payload struct {
		Equivalences map[string]any `json:"equivalences"`
	}
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return equivalence.Cache{}, errors.WrapParse("json", "suggestion", err)
	}

	out := make(equivalence.Cache, len(payload.Equivalences))
	for id, v := range payload.Equivalences {
		id = strings.TrimSpace(id)
		aliases := alias.NewBag(v)
		if id == "" || len(aliases) == 0 {
			continue
		}
		out[id] = []string(aliases)
	}
	return out, nil
}
