// Package lexicon loads the ordered lookup lists that drive mention
// classification and the government-site adapters. A default lexicon is
// embedded; deployments can replace it with their own YAML file.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

//go:embed default.yml
var defaultYAML []byte

// Group maps a label to the terms that select it.
type Group struct {
	Label string   `yaml:"label"`
	Terms []string `yaml:"terms"`
}

type PUCSite struct {
	State   string `yaml:"state"`
	BaseURL string `yaml:"base_url"`
}

type PUC struct {
	Keywords []string  `yaml:"keywords"`
	Paths    []string  `yaml:"paths"`
	Sites    []PUCSite `yaml:"sites"`
}

type LegistarCity struct {
	Name    string `yaml:"name"`
	APIBase string `yaml:"api_base"`
}

type Legistar struct {
	Keywords     []string       `yaml:"keywords"`
	LookbackDays int            `yaml:"lookback_days"`
	MaxEvents    int            `yaml:"max_events"`
	Cities       []LegistarCity `yaml:"cities"`
}

type Feeds struct {
	Keywords []string `yaml:"keywords"`
}

// Lexicon is the full set of lookup data. Every list is ordered.
type Lexicon struct {
	Cities          []string `yaml:"cities"`
	States          []string `yaml:"states"`
	Utilities       []string `yaml:"utilities"`
	UtilityFallback string   `yaml:"utility_fallback"`
	UtilityTypes    []Group  `yaml:"utility_types"`
	Stages          []Group  `yaml:"stages"`
	PriorityTerms   []string `yaml:"priority_terms"`
	PUC             PUC      `yaml:"puc"`
	Legistar        Legistar `yaml:"legistar"`
	Feeds           Feeds    `yaml:"feeds"`
}

const (
	defaultUtilityFallback = "Municipal Utility Discussion"
	defaultLookbackDays    = 90
	defaultMaxEvents       = 50
)

var (
	validUtilityTypes = map[string]bool{
		string(models.UtilityElectric): true,
		string(models.UtilityWater):    true,
		string(models.UtilityGas):      true,
		string(models.UtilityMulti):    true,
	}
	validStages = map[string]bool{
		string(models.StageExploratory): true,
		string(models.StageActive):      true,
		string(models.StageLitigation):  true,
		string(models.StageBallot):      true,
	}
)

// Default returns the embedded lexicon.
func Default() (*Lexicon, error) {
	return Parse(defaultYAML)
}

// Load reads a lexicon file. An empty path returns the embedded default.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates lexicon YAML.
func Parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if lex.UtilityFallback == "" {
		lex.UtilityFallback = defaultUtilityFallback
	}
	if lex.Legistar.LookbackDays <= 0 {
		lex.Legistar.LookbackDays = defaultLookbackDays
	}
	if lex.Legistar.MaxEvents <= 0 {
		lex.Legistar.MaxEvents = defaultMaxEvents
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

// Validate rejects lexicons the extractors cannot work with.
func (l *Lexicon) Validate() error {
	if len(l.Cities) == 0 {
		return errors.New("lexicon: cities must not be empty")
	}
	if len(l.States) == 0 {
		return errors.New("lexicon: states must not be empty")
	}
	if len(l.Utilities) == 0 {
		return errors.New("lexicon: utilities must not be empty")
	}
	for _, state := range l.States {
		if len(state) != 2 {
			return fmt.Errorf("lexicon: state code %q must be two letters", state)
		}
	}
	if err := validateGroups("utility_types", l.UtilityTypes, validUtilityTypes); err != nil {
		return err
	}
	return validateGroups("stages", l.Stages, validStages)
}

func validateGroups(name string, groups []Group, allowed map[string]bool) error {
	for i, g := range groups {
		if !allowed[g.Label] {
			return fmt.Errorf("lexicon: %s[%d] has unknown label %q", name, i, g.Label)
		}
		if len(g.Terms) == 0 {
			return fmt.Errorf("lexicon: %s[%d] (%s) has no terms", name, i, g.Label)
		}
	}
	return nil
}
