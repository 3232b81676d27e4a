// Package schools maps free-text school mentions to canonical school
// identities. Resolution is total: any non-empty mention ends in a
// usable school row, creating one when nothing matches.
package schools

import (
	"context"
	"encoding/json"
	"strings"

	"chanceme-backend/lib/textutil"
	"chanceme-backend/services/admissions/store"

	"github.com/antzucaro/matchr"

	_ "embed"
)

//go:embed aliases.json
var aliasData []byte

// AliasTable maps a normalized alias to the canonical school name.
type AliasTable map[string]string

func LoadAliases() (AliasTable, error) {
	var table AliasTable
	err := json.Unmarshal(aliasData, &table)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Aliases returns the alias keys sorted longest-first so that
// multi-word aliases win over fragments they contain.
func (t AliasTable) Aliases() []string {
	out := make([]string, 0, len(t))
	for alias := range t {
		out = append(out, alias)
	}
	// deterministic iteration matters to extraction tests
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && longerOrEarlier(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func longerOrEarlier(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a < b
}

// Normalize prepares a raw school mention for alias lookup: lowercase,
// collapse whitespace, strip a leading "the" and a trailing
// "university" / "college".
func Normalize(raw string) string {
	name := textutil.NormalizeName(raw)
	name = strings.TrimPrefix(name, "the ")
	name = strings.TrimSuffix(name, " university")
	name = strings.TrimSuffix(name, " college")
	return strings.Trim(name, " ")
}

type Resolver struct {
	store store.Store
	table AliasTable
	// canonical names keyed by their lowercased form, so a name that
	// is already canonical never falls into the fuzzy fallback. Keyed
	// without suffix stripping because "Boston University" and
	// "Boston College" must stay distinct.
	canonicals map[string]string
}

func NewResolver(st store.Store, table AliasTable) Resolver {
	canonicals := make(map[string]string, len(table))
	for _, canonical := range table {
		canonicals[textutil.NormalizeName(canonical)] = canonical
	}
	return Resolver{store: st, table: table, canonicals: canonicals}
}

// Canonical maps a raw mention to a canonical school name through the
// alias table, falling back to whole-word substring containment. The
// second return reports whether any mapping was found.
func (r Resolver) Canonical(raw string) (string, bool) {
	name := Normalize(raw)
	if name == "" {
		return "", false
	}

	canonical, ok := r.table[name]
	if ok {
		return canonical, true
	}
	canonical, ok = r.canonicals[textutil.NormalizeName(raw)]
	if ok {
		return canonical, true
	}

	// containment fallback; when several aliases pass, pick the one
	// closest to the input so map order can't change the result
	best := ""
	bestScore := 0.0
	for alias, mapped := range r.table {
		contains := containsWord(name, alias) ||
			(containsWord(alias, name) && len(name) > 3)
		if !contains {
			continue
		}
		score := matchr.JaroWinkler(name, alias, false)
		if score > bestScore {
			bestScore = score
			best = mapped
		}
	}
	if best != "" {
		return best, true
	}
	return "", false
}

// containsWord reports whether sub occurs in s on word boundaries.
// Plain substring containment would let a short alias like "cal" hijack
// any name mentioning "california".
func containsWord(s, sub string) bool {
	if sub == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(sub)
		if (start == 0 || !isWordByte(s[start-1])) &&
			(end == len(s) || !isWordByte(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// Resolve maps a raw school mention to a school row, creating one with
// country "US" when neither the alias table nor the store knows it.
func (r Resolver) Resolve(ctx context.Context, raw string) (store.School, error) {
	canonical, ok := r.Canonical(raw)
	if ok {
		school, found, err := r.store.SchoolByName(ctx, canonical)
		if err != nil {
			return store.School{}, err
		}
		if found {
			return school, nil
		}
		return r.store.CreateSchool(ctx, canonical, "US")
	}

	display := textutil.CollapseWhitespace(raw)
	school, found, err := r.store.SchoolByName(ctx, display)
	if err != nil {
		return store.School{}, err
	}
	if found {
		return school, nil
	}

	normalized := Normalize(raw)
	if len(normalized) > 3 {
		school, found, err = r.store.SchoolContaining(ctx, normalized)
		if err != nil {
			return store.School{}, err
		}
		if found {
			return school, nil
		}
	}

	return r.store.CreateSchool(ctx, display, "US")
}
