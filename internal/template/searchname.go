package template

import (
	"regexp"
	"strings"
)

var (
	// ecNumberRe matches EC number notation in a role name.
	ecNumberRe = regexp.MustCompile(`\(EC ([\d\-]+\.[\d\-]+\.[\d\-]+\.[\d\-]+)\)`)

	// tcNumberRe matches TC number notation in a role name.
	tcNumberRe = regexp.MustCompile(`\(TC ([\d\-]+\.\w+\.[\d\-]+\.[\d\-]+\.[\d\-]+)\)`)

	// nadpRe matches the "NAD(P)" cofactor notation whose parenthesis must
	// survive the special character strip.
	nadpRe = regexp.MustCompile(`NAD\(P\)`)

	whitespaceRe   = regexp.MustCompile(`\s`)
	commentRe      = regexp.MustCompile(`#.*$`)
	specialCharsRe = regexp.MustCompile(`[-;:()\[\]',>]`)

	// compartmentSuffixRe matches the numeric compartment index suffix on a
	// universal metabolite ID.
	compartmentSuffixRe = regexp.MustCompile(`_(\d+)$`)
)

// MakeSearchName normalizes a role name for string matching by removing EC
// and TC numbers, whitespace, trailing comments, and special characters, and
// lowercasing the rest.
func MakeSearchName(name string) string {
	s := ecNumberRe.ReplaceAllString(name, "")
	s = tcNumberRe.ReplaceAllString(s, "")
	s = nadpRe.ReplaceAllString(s, "NAD{P}")
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, "")
	s = commentRe.ReplaceAllString(s, "")
	s = specialCharsRe.ReplaceAllString(s, "")
	return s
}
