package template

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	roleFields        = []string{"id", "name", "source", "features", "aliases"}
	complexFields     = []string{"id", "name", "source", "reference", "confidence", "roles"}
	compartmentFields = []string{"id", "name", "index"}
	reactionFields    = []string{"id", "compartment", "direction", "gfdir", "type",
		"base_cost", "forward_cost", "reverse_cost", "complexes"}
)

// Role is a biological function fulfilled by one or more genome features.
type Role struct {
	ID     string
	Name   string
	Source string

	Features []string
	Aliases  []string

	// SearchName is the normalized name used for matching against feature
	// functions.
	SearchName string

	// ECNumbers and TCNumbers are extracted from the role name.
	ECNumbers []string
	TCNumbers []string

	// ComplexIDs lists the complexes triggered by the role, filled in when a
	// template is assembled.
	ComplexIDs []string
}

// ComplexRole links a complex to one of its roles.
type ComplexRole struct {
	RoleID     string
	Type       string
	Optional   bool
	Triggering bool
}

// Complex is a set of roles that must act in concert to catalyze reactions.
type Complex struct {
	ID         string
	Name       string
	Source     string
	Reference  string
	Confidence float64
	Roles      []ComplexRole

	// ReactionIDs lists the reactions catalyzed by the complex, filled in
	// when a template is assembled.
	ReactionIDs []string
}

// Compartment is a region of a cell. ID is the compartment index number used
// in reaction stoichiometry and ModelID is the single letter ID used in an
// organism model.
type Compartment struct {
	ID      string
	ModelID string
	Name    string

	Hierarchy int
	PH        float64
	Aliases   []string
}

// ReadRoles reads a role source file.
func ReadRoles(filename string) (map[string]*Role, error) {
	roles := make(map[string]*Role)
	_, err := readSourceFile(filename, roleFields, func(rec sourceRecord) error {
		id := rec.get("id")
		if _, ok := roles[id]; ok {
			return &DuplicateError{ID: id, Line: rec.line}
		}
		role := &Role{
			ID:         id,
			Name:       rec.get("name"),
			Source:     rec.get("source"),
			SearchName: MakeSearchName(rec.get("name")),
		}
		for _, match := range ecNumberRe.FindAllStringSubmatch(role.Name, -1) {
			role.ECNumbers = append(role.ECNumbers, match[1])
		}
		for _, match := range tcNumberRe.FindAllStringSubmatch(role.Name, -1) {
			role.TCNumbers = append(role.TCNumbers, match[1])
		}
		if v := rec.get("features"); v != "null" {
			role.Features = strings.Split(v, ";")
		}
		if v := rec.get("aliases"); v != "null" {
			role.Aliases = strings.Split(v, ";")
		}
		roles[id] = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ReadComplexes reads a complex source file. Each complex links to its roles
// with entries formatted as roleID;type;optional;triggering separated by
// vertical bars.
func ReadComplexes(filename string) (map[string]*Complex, error) {
	complexes := make(map[string]*Complex)
	_, err := readSourceFile(filename, complexFields, func(rec sourceRecord) error {
		id := rec.get("id")
		if _, ok := complexes[id]; ok {
			return &DuplicateError{ID: id, Line: rec.line}
		}
		confidence, _ := strconv.ParseFloat(rec.get("confidence"), 64)
		cpx := &Complex{
			ID:         id,
			Name:       rec.get("name"),
			Source:     rec.get("source"),
			Confidence: confidence,
		}
		if v := rec.get("reference"); v != "null" {
			cpx.Reference = v
		}
		if v := rec.get("roles"); v != "null" {
			for _, link := range strings.Split(v, "|") {
				values := strings.Split(link, ";")
				if len(values) < 4 {
					return fmt.Errorf("complex %s on line %d has invalid role link %q", id, rec.line, link)
				}
				cpx.Roles = append(cpx.Roles, ComplexRole{
					RoleID:     values[0],
					Type:       values[1],
					Optional:   values[2] == "1",
					Triggering: values[3] == "1",
				})
			}
		}
		complexes[id] = cpx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return complexes, nil
}

// ReadCompartments reads a compartment source file keyed by compartment
// index number.
func ReadCompartments(filename string) (map[string]*Compartment, error) {
	compartments := make(map[string]*Compartment)
	_, err := readSourceFile(filename, compartmentFields, func(rec sourceRecord) error {
		index := rec.get("index")
		if _, ok := compartments[index]; ok {
			return &DuplicateError{ID: index, Line: rec.line}
		}
		compartment := &Compartment{
			ID:        index,
			ModelID:   rec.get("id"),
			Name:      rec.get("name"),
			Hierarchy: 1,
			PH:        7.0,
		}
		if v := rec.getOrNull("hierarchy"); v != "null" {
			compartment.Hierarchy, _ = strconv.Atoi(v)
		}
		if v := rec.getOrNull("pH"); v != "null" {
			compartment.PH, _ = strconv.ParseFloat(v, 64)
		}
		if v := rec.getOrNull("aliases"); v != "null" {
			compartment.Aliases = strings.Split(v, ";")
		}
		compartments[index] = compartment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return compartments, nil
}
