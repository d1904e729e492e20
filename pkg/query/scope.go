package query

import "strings"

// Keyword lists for the topical scope check. Matching is a plain substring
// test on the lower-cased question; there is no stemming.
var inScopeKeywords = []string{
	"policy", "policies", "rule", "regulation",
	"exam", "grade", "grading", "cgpa", "sgpa", "gpa", "credit",
	"attendance", "assessment", "assignment", "internal", "evaluation", "marks",
	"semester", "syllabus", "curriculum", "course", "unit", "topic", "outcome",
	"leave", "graduation", "degree", "requirement", "eligibility",
	"discipline", "disciplinary", "conduct", "penalty", "plagiarism", "probation",
	"fee", "calendar", "deadline", "handbook", "backlog", "revaluation",
	"supplementary", "withdrawal",
}

var outOfScopeKeywords = []string{
	"placement", "recruit", "company", "companies", "package", "salary",
	"admission", "cutoff", "cut-off", "ranking",
	"fest", "club", "canteen", "social", "campus life", "nightlife", "party",
}

// OutOfScopeAssistant is the assistant suggested for off-topic questions.
const OutOfScopeAssistant = "CampusBot"

// IsOutOfScope reports whether question names an off-topic subject and no
// in-scope one. Questions with neither kind of keyword pass.
func IsOutOfScope(question string) bool {
	q := strings.ToLower(question)
	if !containsAny(q, outOfScopeKeywords) {
		return false
	}
	return !containsAny(q, inScopeKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
