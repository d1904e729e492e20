package query

import (
	"fmt"
	"sort"
	"strings"

	"campus-desk-be/pkg/deskerr"
)

// Presentation options a question may carry.
const (
	OptionBrief         = "brief"
	OptionDetailed      = "detailed"
	OptionExamples      = "examples"
	OptionDiagrams      = "diagrams"
	OptionPractice      = "practice"
	OptionRealWorld     = "realWorld"
	OptionPrerequisites = "prerequisites"
	OptionNextSteps     = "nextSteps"
)

var knownOptions = map[string]struct{}{
	OptionBrief:         {},
	OptionDetailed:      {},
	OptionExamples:      {},
	OptionDiagrams:      {},
	OptionPractice:      {},
	OptionRealWorld:     {},
	OptionPrerequisites: {},
	OptionNextSteps:     {},
}

// normalizeOptions validates options and returns them sorted without
// duplicates, so selection order never changes the cache key.
func normalizeOptions(options []string) ([]string, error) {
	seen := make(map[string]struct{}, len(options))
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, ok := knownOptions[o]; !ok {
			return nil, deskerr.New(deskerr.CodeValidation, fmt.Sprintf("Unknown answer option %q.", o))
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}
