package template

import (
	"regexp"
	"sort"
	"strings"
)

// delimiterRe splits a feature function into its roles.
var delimiterRe = regexp.MustCompile(`\s*;\s+|\s+[@/]\s+`)

// compartmentKeywords maps keywords found in a function's comment to the
// compartment where the function is active.
var compartmentKeywords = map[string]string{
	"cytosolic":             "c",
	"plastidial":            "d",
	"mitochondrial":         "m",
	"peroxisomal":           "x",
	"lysosomal":             "l",
	"vacuolar":              "v",
	"nuclear":               "n",
	"plasma membrane":       "p",
	"cell wall":             "w",
	"golgi apparatus":       "g",
	"endoplasmic reticulum": "r",
	"extracellular":         "e",
	"cellwall":              "w",
	"periplasm":             "p",
	"cytosol":               "c",
	"golgi":                 "g",
	"endoplasm":             "r",
	"lysosome":              "l",
	"nucleus":               "n",
	"chloroplast":           "h",
	"mitochondria":          "m",
	"peroxisome":            "x",
	"vacuole":               "v",
	"plastid":               "d",
	"unknown":               "u",
}

// Feature is an annotated part of a genome, usually a protein-encoding gene.
// The function string is split into roles and anything after the first '#'
// character is treated as a comment that may localize the function to
// specific compartments.
type Feature struct {
	ID       string
	Function string
	Comment  string

	// Compartments lists the compartment IDs where the function is active.
	// Most features are not localized and carry the unknown compartment "u".
	Compartments []string

	// Roles and SearchRoles hold the functional roles of the feature and
	// their normalized search names.
	Roles       []string
	SearchRoles []string

	// ECNumbers lists the EC numbers found in the roles.
	ECNumbers []string
}

// NewFeature creates a feature from an ID and function string. Vertical bars
// in the ID are replaced with periods.
func NewFeature(id, function string) *Feature {
	f := &Feature{
		ID:           strings.ReplaceAll(id, "|", "."),
		Compartments: []string{"u"},
	}

	parts := strings.SplitN(function, "#", 2)
	f.Function = strings.TrimSpace(parts[0])
	f.Comment = "none"
	if len(parts) > 1 {
		f.Comment = parts[1]
		found := make(map[string]bool)
		lower := strings.ToLower(f.Comment)
		for keyword, compartment := range compartmentKeywords {
			if strings.Contains(lower, keyword) {
				found[compartment] = true
			}
		}
		if len(found) > 0 {
			f.Compartments = f.Compartments[:0]
			for compartment := range found {
				f.Compartments = append(f.Compartments, compartment)
			}
			sort.Strings(f.Compartments)
		}
	}

	f.Roles = delimiterRe.Split(f.Function, -1)
	for _, role := range f.Roles {
		f.SearchRoles = append(f.SearchRoles, MakeSearchName(role))
		for _, match := range ecNumberRe.FindAllStringSubmatch(role, -1) {
			f.ECNumbers = append(f.ECNumbers, match[1])
		}
	}
	return f
}
