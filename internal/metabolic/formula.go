package metabolic

import (
	"fmt"
	"strconv"
	"unicode"
)

// ParseFormula converts a chemical formula like "C6H12O6" or "C10H12N5O7P"
// into a map of element symbol to atom count. Parenthesized groups with a
// trailing multiplier, as in "Fe(CN)6", are expanded.
func ParseFormula(formula string) (map[string]float64, error) {
	elements := make(map[string]float64)
	count, _, err := parseGroup(formula, 0, elements, 1.0)
	if err != nil {
		return nil, err
	}
	if count != len(formula) {
		return nil, fmt.Errorf("unexpected character at position %d in formula %q", count, formula)
	}
	return elements, nil
}

func parseGroup(formula string, pos int, elements map[string]float64, multiplier float64) (int, map[string]float64, error) {
	for pos < len(formula) {
		c := rune(formula[pos])
		switch {
		case c == '(':
			group := make(map[string]float64)
			next, _, err := parseGroup(formula, pos+1, group, 1.0)
			if err != nil {
				return pos, nil, err
			}
			if next >= len(formula) || formula[next] != ')' {
				return pos, nil, fmt.Errorf("unbalanced parenthesis in formula %q", formula)
			}
			next++
			groupCount := 1.0
			next, groupCount = parseCount(formula, next)
			for elem, n := range group {
				elements[elem] += n * groupCount * multiplier
			}
			pos = next
		case c == ')':
			return pos, elements, nil
		case unicode.IsUpper(c):
			end := pos + 1
			for end < len(formula) && unicode.IsLower(rune(formula[end])) {
				end++
			}
			symbol := formula[pos:end]
			var n float64
			end, n = parseCount(formula, end)
			elements[symbol] += n * multiplier
			pos = end
		default:
			return pos, elements, nil
		}
	}
	return pos, elements, nil
}

func parseCount(formula string, pos int) (int, float64) {
	end := pos
	for end < len(formula) && (unicode.IsDigit(rune(formula[end])) || formula[end] == '.') {
		end++
	}
	if end == pos {
		return pos, 1.0
	}
	n, err := strconv.ParseFloat(formula[pos:end], 64)
	if err != nil {
		return pos, 1.0
	}
	return end, n
}

// CheckMassBalance sums the atoms and charge on both sides of the reaction
// and returns a map of element (or "charge") to imbalance. An empty map
// means the reaction is balanced. An error is returned when a metabolite has
// no formula.
func (m *Model) CheckMassBalance(rxn *Reaction) (map[string]float64, error) {
	balance := make(map[string]float64)
	for metID, coeff := range rxn.Metabolites {
		met := m.metabolites[metID]
		if met == nil {
			return nil, fmt.Errorf("metabolite %s in reaction %s is not in model", metID, rxn.ID)
		}
		if met.Formula == "" {
			return nil, fmt.Errorf("metabolite %s in reaction %s has no formula", metID, rxn.ID)
		}
		elements, err := ParseFormula(met.Formula)
		if err != nil {
			return nil, err
		}
		for elem, n := range elements {
			balance[elem] += n * coeff
		}
		balance["charge"] += met.Charge * coeff
	}
	for key, v := range balance {
		if v > -1e-9 && v < 1e-9 {
			delete(balance, key)
		}
	}
	return balance, nil
}
