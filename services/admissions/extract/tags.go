package extract

import "regexp"

// Background and academic-interest tags are independent predicates
// over the whole buffer; a tag is never tied to one school mention.
var tagPredicates = []struct {
	tag   string
	regex *regexp.Regexp
}{
	{"international", regexp.MustCompile(`\binternational\b|\bintl\b`)},
	{"first-gen", regexp.MustCompile(`first[ -]?gen(eration)?`)},
	{"legacy", regexp.MustCompile(`\blegacy\b`)},
	{"athlete", regexp.MustCompile(`\bathlete\b|\brecruited\b|athletic recruit`)},
	{"cs", regexp.MustCompile(`computer science|\bcs major\b|\bcs\b`)},
	{"premed", regexp.MustCompile(`pre[ -]?med|\bbiology major\b|\bneuroscience\b`)},
	{"engineering", regexp.MustCompile(`\bengineering\b|\bmech ?e\b|\bee\b`)},
	{"business", regexp.MustCompile(`\bbusiness\b|\bfinance\b|\becon(omics)?\b`)},
	{"humanities", regexp.MustCompile(`\bhumanities\b|english major|history major|\bphilosophy\b`)},
	{"stem", regexp.MustCompile(`\bstem\b|\bmath major\b|\bphysics\b`)},
}

func extractTags(buffer string) []string {
	var tags []string
	for _, predicate := range tagPredicates {
		if predicate.regex.MatchString(buffer) {
			tags = append(tags, predicate.tag)
		}
	}
	return tags
}
