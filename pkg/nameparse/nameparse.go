// Package nameparse splits free-text person names into components. Provider
// search pages return names as single cells ("DOE, JOHN A" or "John Doe Jr"),
// and search queries arrive the same way; both need a first/last split before
// they can be matched against stored records.
package nameparse

import "strings"

// Name holds the parsed components of a human name.
type Name struct {
	First  string
	Middle string
	Last   string
	Suffix string
}

var suffixes = map[string]struct{}{
	"JR": {}, "JR.": {}, "SR": {}, "SR.": {},
	"II": {}, "III": {}, "IV": {}, "V": {},
}

// Parse splits a free-text name. Both "Last, First Middle" and
// "First Middle Last" forms are handled; generational suffixes are peeled
// off the end. A single bare token is treated as a first name.
func Parse(s string) Name {
	s = strings.TrimSpace(s)
	if s == "" {
		return Name{}
	}

	if before, after, found := strings.Cut(s, ","); found {
		n := parseGivenNames(strings.Fields(after))
		n.Last = strings.TrimSpace(before)
		return n
	}

	tokens := strings.Fields(s)

	var suffix string
	if len(tokens) > 1 {
		if _, ok := suffixes[strings.ToUpper(tokens[len(tokens)-1])]; ok {
			suffix = tokens[len(tokens)-1]
			tokens = tokens[:len(tokens)-1]
		}
	}

	n := Name{Suffix: suffix}
	switch len(tokens) {
	case 0:
	case 1:
		n.First = tokens[0]
	default:
		n.First = tokens[0]
		n.Last = tokens[len(tokens)-1]
		n.Middle = strings.Join(tokens[1:len(tokens)-1], " ")
	}
	return n
}

func parseGivenNames(tokens []string) Name {
	var n Name
	if len(tokens) > 1 {
		if _, ok := suffixes[strings.ToUpper(tokens[len(tokens)-1])]; ok {
			n.Suffix = tokens[len(tokens)-1]
			tokens = tokens[:len(tokens)-1]
		}
	}
	if len(tokens) > 0 {
		n.First = tokens[0]
		n.Middle = strings.Join(tokens[1:], " ")
	}
	return n
}
