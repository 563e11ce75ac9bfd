package likelihood

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// MinEValue is the floor applied to e-values before taking the log so a
// perfect alignment does not produce a log of zero.
const MinEValue = 1e-200

// targetScore is one alignment from the search program: the target feature
// that was hit and the score derived from the alignment e-value.
type targetScore struct {
	TargetID string
	Score    float64
}

// parseAlignments reads search results in BLAST output format 6 and returns
// the alignment scores grouped by query feature ID. Each line has 12 tab
// delimited fields; field 11 is the e-value and field 12 is the bit score.
// Alignments with a negative bit score are dropped.
func parseAlignments(r io.Reader) (map[string][]targetScore, int, error) {
	scores := make(map[string][]targetScore)
	dropped := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			return nil, 0, fmt.Errorf("alignment line has %d fields, expected 12: %q", len(fields), line)
		}
		bitScore, err := strconv.ParseFloat(fields[11], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("alignment bit score %q: %w", fields[11], err)
		}
		if bitScore < 0 {
			dropped++
			continue
		}
		evalue, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, 0, fmt.Errorf("alignment e-value %q: %w", fields[10], err)
		}
		scores[fields[0]] = append(scores[fields[0]], targetScore{
			TargetID: fields[1],
			Score:    -math.Log10(evalue + MinEValue),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return scores, dropped, nil
}

// RolesetLikelihood is the likelihood that a query feature has the set of
// roles named by the roleset string. A roleset concatenates all of the roles
// of a protein with a single function.
type RolesetLikelihood struct {
	Roleset    string
	Likelihood float64
}

// rolesetLikelihoods computes the likelihood of each possible roleset for
// each query feature. For a query, the likelihood of a roleset is the sum of
// squared alignment scores for targets annotated with that roleset, divided
// by the total over all rolesets plus pseudoCount times the maximum score.
// Squaring gives more weight to strong hits so weaker hits and noise do not
// drown them out.
func rolesetLikelihoods(queryScores map[string][]targetScore, targetRolesets map[string]string,
	pseudoCount float64) (map[string][]RolesetLikelihood, int, error) {

	out := make(map[string][]RolesetLikelihood, len(queryScores))
	missing := 0
	for queryID, alignments := range queryScores {
		maxScore := 0.0
		for _, a := range alignments {
			if a.Score > maxScore {
				maxScore = a.Score
			}
		}

		rolesetScores := make(map[string]float64)
		for _, a := range alignments {
			roleset, ok := targetRolesets[a.TargetID]
			if !ok {
				missing++
				continue
			}
			rolesetScores[roleset] += a.Score * a.Score
		}

		denom := pseudoCount * maxScore
		for _, score := range rolesetScores {
			denom += score
		}
		if math.IsNaN(denom) {
			return nil, 0, fmt.Errorf("denominator in likelihood calculation for feature %s is NaN", queryID)
		}

		for roleset, score := range rolesetScores {
			likelihood := score / denom
			if math.IsNaN(likelihood) {
				return nil, 0, fmt.Errorf("likelihood of roleset %q for feature %s is NaN", roleset, queryID)
			}
			out[queryID] = append(out[queryID], RolesetLikelihood{Roleset: roleset, Likelihood: likelihood})
		}
	}
	return out, missing, nil
}

// RoleLikelihood is the likelihood that a query feature performs a single
// functional role.
type RoleLikelihood struct {
	QueryID    string
	Role       string
	Likelihood float64
}

// roleLikelihoods converts roleset likelihoods into individual role
// likelihoods. Rolesets containing the same role contribute additively, so a
// role carried by both a bifunctional and a monofunctional enzyme ends up
// with a greater likelihood than the role unique to one of them.
func roleLikelihoods(rolesets map[string][]RolesetLikelihood, separator string) []RoleLikelihood {
	queryIDs := make([]string, 0, len(rolesets))
	for queryID := range rolesets {
		queryIDs = append(queryIDs, queryID)
	}
	sort.Strings(queryIDs)

	var out []RoleLikelihood
	for _, queryID := range queryIDs {
		perRole := make(map[string]float64)
		for _, value := range rolesets[queryID] {
			for _, role := range strings.Split(value.Roleset, separator) {
				perRole[role] += value.Likelihood
			}
		}
		roles := make([]string, 0, len(perRole))
		for role := range perRole {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			out = append(out, RoleLikelihood{QueryID: queryID, Role: role, Likelihood: perRole[role]})
		}
	}
	return out
}

// TotalRole is the likelihood that a role exists anywhere in the organism,
// with the GPR string naming the features most likely responsible for it.
type TotalRole struct {
	Likelihood float64
	GPR        string
}

// totalRoleLikelihoods estimates the likelihood of each role existing in the
// organism as the maximum likelihood over all query features. Features within
// dilutionPercent of the maximum are kept as the likely genes for the role
// and joined with an OR relationship.
func totalRoleLikelihoods(roles []RoleLikelihood, dilutionPercent float64) map[string]TotalRole {
	maxByRole := make(map[string]float64)
	for _, value := range roles {
		if value.Likelihood > maxByRole[value.Role] {
			maxByRole[value.Role] = value.Likelihood
		}
	}

	dilution := dilutionPercent / 100.0
	genesByRole := make(map[string]map[string]bool)
	for _, value := range roles {
		if value.Likelihood < dilution*maxByRole[value.Role] {
			continue
		}
		if genesByRole[value.Role] == nil {
			genesByRole[value.Role] = make(map[string]bool)
		}
		genesByRole[value.Role][value.QueryID] = true
	}

	out := make(map[string]TotalRole, len(maxByRole))
	for role, likelihood := range maxByRole {
		genes := make([]string, 0, len(genesByRole[role]))
		for gene := range genesByRole[role] {
			genes = append(genes, gene)
		}
		sort.Strings(genes)
		gpr := strings.Join(genes, " or ")
		// Grouping is only needed with more than one gene, which avoids extra
		// parentheses when complexes are assembled.
		if len(genes) > 1 {
			gpr = "(" + gpr + ")"
		}
		out[role] = TotalRole{Likelihood: likelihood, GPR: gpr}
	}
	return out
}

// Complex types assigned while computing complex likelihoods.
const (
	ComplexFull              = "CPLX_FULL"
	ComplexNotThere          = "CPLX_NOTTHERE"
	ComplexNoReps            = "CPLX_NOREPS"
	ComplexNoRepsAndNotThere = "CPLX_NOREPS_AND_NOTTHERE"
)

// ComplexLikelihood is the likelihood that a protein complex exists in the
// organism. MissingRoles lists roles with no representative in the search
// database; UnavailRoles lists roles represented in the database but not
// found in the organism.
type ComplexLikelihood struct {
	Likelihood   float64
	Type         string
	GPR          string
	UnavailRoles string
	MissingRoles string
}

// complexLikelihoods computes the likelihood of each complex as the minimum
// likelihood over its roles, ignoring roles with no representatives in the
// search database. Each complex is classified by how many of its roles were
// found.
func complexLikelihoods(totalRoles map[string]TotalRole, complexesToRoles map[string][]string,
	targetRolesets map[string]string, separator string, stats *Statistics) map[string]ComplexLikelihood {

	databaseRoles := make(map[string]bool)
	for _, roleset := range targetRolesets {
		databaseRoles[roleset] = true
	}

	out := make(map[string]ComplexLikelihood, len(complexesToRoles))
	for complexID, complexRoles := range complexesToRoles {
		var availRoles, unavailRoles, missingRoles []string
		for _, role := range complexRoles {
			_, inOrganism := totalRoles[role]
			switch {
			case !databaseRoles[role]:
				missingRoles = append(missingRoles, role)
			case !inOrganism:
				unavailRoles = append(unavailRoles, role)
			default:
				availRoles = append(availRoles, role)
			}
		}

		cpx := ComplexLikelihood{
			Type:         "UNKNOWN",
			UnavailRoles: strings.Join(unavailRoles, separator),
			MissingRoles: strings.Join(missingRoles, separator),
		}
		switch {
		case len(missingRoles) == len(complexRoles):
			stats.ComplexNoReps++
			cpx.Type = ComplexNoReps
			out[complexID] = cpx
			continue
		case len(unavailRoles) == len(complexRoles):
			stats.ComplexNotThere++
			cpx.Type = ComplexNotThere
			out[complexID] = cpx
			continue
		case len(unavailRoles)+len(missingRoles) == len(complexRoles):
			stats.ComplexNoRepsAndNotThere++
			cpx.Type = ComplexNoRepsAndNotThere
			out[complexID] = cpx
			continue
		case len(availRoles) == len(complexRoles):
			stats.ComplexFull++
			cpx.Type = ComplexFull
		default:
			stats.ComplexPartial++
			cpx.Type = fmt.Sprintf("CPLX_PARTIAL_%d_of_%d", len(availRoles), len(complexRoles))
		}

		// Roles in a complex must all be present, so their GPR strings are
		// linked with an AND relationship.
		seen := make(map[string]bool)
		var gprList []string
		for _, role := range availRoles {
			gpr := totalRoles[role].GPR
			if gpr == "" || seen[gpr] {
				continue
			}
			seen[gpr] = true
			gprList = append(gprList, gpr)
		}
		if len(gprList) > 1 {
			cpx.GPR = "(" + strings.Join(gprList, " and ") + ")"
		} else if len(gprList) == 1 {
			cpx.GPR = gprList[0]
		}

		minLikelihood := math.MaxFloat64
		for _, role := range availRoles {
			if totalRoles[role].Likelihood < minLikelihood {
				minLikelihood = totalRoles[role].Likelihood
			}
		}
		cpx.Likelihood = minLikelihood
		out[complexID] = cpx
	}
	return out
}

// Reaction types assigned while computing reaction likelihoods.
const (
	ReactionHasComplexes = "HASCOMPLEXES"
	ReactionNoComplexes  = "NOCOMPLEXES"
)

// ReactionLikelihood is the likelihood that a reaction occurs in the
// organism. ComplexString records the likelihood and type of every complex
// linked to the reaction.
type ReactionLikelihood struct {
	Likelihood    float64
	Type          string
	GPR           string
	ComplexString string
}

// reactionLikelihoods computes the likelihood of each reaction as the maximum
// likelihood over the complexes that catalyze it. Complex GPR strings within
// dilutionPercent of the maximum are joined with an OR relationship, which
// keeps a complex with a high likelihood from being ORed with one that is
// barely supported. Reaction IDs get a "0" suffix for the community index the
// reconstruction service always uses.
func reactionLikelihoods(complexes map[string]ComplexLikelihood, reactionsToComplexes map[string][]string,
	dilutionPercent float64, separator string, stats *Statistics) map[string]ReactionLikelihood {

	dilution := dilutionPercent / 100.0
	out := make(map[string]ReactionLikelihood, len(reactionsToComplexes))
	for reactionID, complexIDs := range reactionsToComplexes {
		type linked struct {
			id         string
			likelihood float64
			cpxType    string
		}
		var found []linked
		for _, complexID := range complexIDs {
			if cpx, ok := complexes[complexID]; ok {
				found = append(found, linked{id: complexID, likelihood: cpx.Likelihood, cpxType: cpx.Type})
			}
		}

		rxn := ReactionLikelihood{Type: ReactionNoComplexes}
		if len(found) > 0 {
			rxn.Type = ReactionHasComplexes
			stats.ReactionsWithComplexes++
			sort.SliceStable(found, func(i, j int) bool { return found[i].likelihood > found[j].likelihood })
			rxn.Likelihood = found[0].likelihood
			parts := make([]string, 0, len(found))
			for _, cpx := range found {
				parts = append(parts, fmt.Sprintf("%s (%1.4f; %s)", cpx.id, cpx.likelihood, cpx.cpxType))
			}
			rxn.ComplexString = strings.Join(parts, separator)
		} else {
			stats.ReactionsWithoutComplexes++
		}
		if rxn.Likelihood > 0 {
			stats.NonzeroLikelihoods++
		} else {
			stats.ZeroLikelihoods++
		}

		seen := make(map[string]bool)
		var gprList []string
		for _, complexID := range complexIDs {
			cpx, ok := complexes[complexID]
			if !ok || cpx.Likelihood < rxn.Likelihood*dilution || cpx.GPR == "" || seen[cpx.GPR] {
				continue
			}
			seen[cpx.GPR] = true
			gprList = append(gprList, cpx.GPR)
		}
		rxn.GPR = strings.Join(gprList, " or ")

		// The reconstruction service always uses a community index of 0.
		out[reactionID+"0"] = rxn
	}
	return out
}
