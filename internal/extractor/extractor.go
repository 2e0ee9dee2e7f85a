// Package extractor classifies free text into the mention fields: location,
// utility, utility type, stage and priority. Every extractor is total: any
// input maps to exactly one label, falling back to a documented default.
package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

// UnknownLocation is returned when no city or state is found.
const UnknownLocation = "Unknown"

// Classification is the full extractor output for one text.
type Classification struct {
	Location    string
	Utility     string
	UtilityType models.UtilityType
	Stage       models.Stage
	Priority    models.Priority
}

type labeledMatcher struct {
	label   string
	matcher *termMatcher
}

// Extractor holds the compiled lookup lists. It is safe for concurrent use.
type Extractor struct {
	cities          *termMatcher
	states          []string
	stateTokens     []*regexp.Regexp
	utilities       *termMatcher
	utilityFallback string
	utilityTypes    []labeledMatcher
	stages          []labeledMatcher
	priority        *termMatcher
}

// New compiles an extractor from lex.
func New(lex *lexicon.Lexicon) (*Extractor, error) {
	if err := lex.Validate(); err != nil {
		return nil, err
	}

	e := &Extractor{
		cities:          newTermMatcher(lex.Cities),
		states:          lex.States,
		utilities:       newTermMatcher(lex.Utilities),
		utilityFallback: lex.UtilityFallback,
		priority:        newTermMatcher(lex.PriorityTerms),
	}

	for _, state := range lex.States {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(state) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile state token %q: %w", state, err)
		}
		e.stateTokens = append(e.stateTokens, re)
	}
	for _, g := range lex.UtilityTypes {
		e.utilityTypes = append(e.utilityTypes, labeledMatcher{label: g.Label, matcher: newTermMatcher(g.Terms)})
	}
	for _, g := range lex.Stages {
		e.stages = append(e.stages, labeledMatcher{label: g.Label, matcher: newTermMatcher(g.Terms)})
	}
	return e, nil
}

// Classify runs every extractor over text.
func (e *Extractor) Classify(text string) Classification {
	lowered := strings.ToLower(text)
	return Classification{
		Location:    e.location(text, lowered),
		Utility:     e.utility(lowered),
		UtilityType: e.utilityType(lowered),
		Stage:       e.stage(lowered),
		Priority:    e.priorityOf(lowered),
	}
}

// Location returns "City, ST", a bare city, a bare state code or "Unknown".
func (e *Extractor) Location(text string) string {
	return e.location(text, strings.ToLower(text))
}

func (e *Extractor) location(text, lowered string) string {
	if city, ok := e.cities.first(lowered); ok {
		prefix := strings.ToLower(city) + ", "
		for _, state := range e.states {
			if strings.Contains(lowered, prefix+strings.ToLower(state)) {
				return city + ", " + state
			}
		}
		return city
	}

	// state codes match case-sensitively, as whole words only
	for i, re := range e.stateTokens {
		if re.MatchString(text) {
			return e.states[i]
		}
	}
	return UnknownLocation
}

// Utility returns the first known utility named in text, or the fallback.
func (e *Extractor) Utility(text string) string {
	return e.utility(strings.ToLower(text))
}

func (e *Extractor) utility(lowered string) string {
	if name, ok := e.utilities.first(lowered); ok {
		return name
	}
	return e.utilityFallback
}

// UtilityType defaults to Electric.
func (e *Extractor) UtilityType(text string) models.UtilityType {
	return e.utilityType(strings.ToLower(text))
}

func (e *Extractor) utilityType(lowered string) models.UtilityType {
	if label, ok := firstGroup(e.utilityTypes, lowered); ok {
		return models.UtilityType(label)
	}
	return models.UtilityElectric
}

// Stage defaults to Exploratory.
func (e *Extractor) Stage(text string) models.Stage {
	return e.stage(strings.ToLower(text))
}

func (e *Extractor) stage(lowered string) models.Stage {
	if label, ok := firstGroup(e.stages, lowered); ok {
		return models.Stage(label)
	}
	return models.StageExploratory
}

// Priority is high when any urgency term appears.
func (e *Extractor) Priority(text string) models.Priority {
	return e.priorityOf(strings.ToLower(text))
}

func (e *Extractor) priorityOf(lowered string) models.Priority {
	if e.priority.any(lowered) {
		return models.PriorityHigh
	}
	return models.PriorityNormal
}

func firstGroup(groups []labeledMatcher, lowered string) (string, bool) {
	for _, g := range groups {
		if g.matcher.any(lowered) {
			return g.label, true
		}
	}
	return "", false
}
