package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

func newExtractor(t *testing.T) *extractor.Extractor {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	e, err := extractor.New(lex)
	require.NoError(t, err)
	return e
}

func TestLocation(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"city with state", "Boulder, CO council revisits municipalization", "Boulder, CO"},
		{"lowercase city and state", "residents of portland, or rally for public power", "Portland, OR"},
		{"state later in text", "Seattle City Light expansion; Seattle, WA hearing set", "Seattle, WA"},
		{"bare city", "Denver officials study utility options", "Denver"},
		{"case-insensitive city", "san francisco supervisors weigh PG&E buyout", "San Francisco"},
		{"first city in list order wins", "Boston and Chicago compare notes", "Chicago"},
		{"state token only", "Legislators in TX propose a new franchise law", "TX"},
		{"first state in list order", "Bills filed in TX and CA this week", "CA"},
		{"lowercase state words ignored", "come in or call me", extractor.UnknownLocation},
		{"state inside word ignored", "CAPITAL improvements", extractor.UnknownLocation},
		{"nothing", "", extractor.UnknownLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, e.Location(tt.text))
		})
	}
}

func TestUtility(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	tests := []struct {
		text string
		want string
	}{
		{"Xcel Energy franchise expires in Boulder", "Xcel Energy"},
		{"Pacific Gas & Electric (PG&E) bankruptcy", "Pacific Gas & Electric"},
		{"pg&e wildfire settlement", "PG&E"},
		{"PSE&G customers see rate hike", "PSE&G"},
		{"Customers of Con Edison", "Con Edison"},
		{"Tennessee Valley Authority board meets", "Tennessee Valley Authority"},
		{"A city thinks about public power", "Municipal Utility Discussion"},
		{"", "Municipal Utility Discussion"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Utility(tt.text), tt.text)
	}
}

func TestUtilityType(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	assert.Equal(t, models.UtilityWater, e.UtilityType("Wastewater utility takeover proposed"))
	assert.Equal(t, models.UtilityGas, e.UtilityType("Natural Gas franchise renewal"))
	assert.Equal(t, models.UtilityMulti, e.UtilityType("A multi-utility district is formed"))
	assert.Equal(t, models.UtilityGas, e.UtilityType("electric and gas service"), "gas terms are checked before multi-utility phrasing")
	assert.Equal(t, models.UtilityElectric, e.UtilityType("City explores public power"))
}

func TestStage(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	assert.Equal(t, models.StageBallot, e.Stage("Ballot question on utility lawsuit"), "ballot precedes litigation")
	assert.Equal(t, models.StageBallot, e.Stage("Voters head to the Election"))
	assert.Equal(t, models.StageLitigation, e.Stage("Eminent domain fight over grid assets"))
	assert.Equal(t, models.StageActive, e.Stage("Council approved the feasibility study"))
	assert.Equal(t, models.StageExploratory, e.Stage("Residents discuss energy options"))
}

func TestPriority(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	assert.Equal(t, models.PriorityHigh, e.Priority("Ballot measure heads to a vote"))
	assert.Equal(t, models.PriorityHigh, e.Priority("URGENT: filing deadline Friday"))
	assert.Equal(t, models.PriorityNormal, e.Priority("Residents discuss energy options"))
}

func TestClassify_IsTotalAndDeterministic(t *testing.T) {
	t.Parallel()
	e := newExtractor(t)

	validTypes := map[models.UtilityType]bool{
		models.UtilityElectric: true, models.UtilityWater: true, models.UtilityGas: true, models.UtilityMulti: true,
	}
	validStages := map[models.Stage]bool{
		models.StageExploratory: true, models.StageActive: true, models.StageLitigation: true, models.StageBallot: true,
	}

	inputs := []string{
		"",
		"   ",
		"Boulder, CO voters approve municipal electric utility",
		"日本語のテキスト",
		"\x00\xff binary junk",
		"Austin Energy water and gas court deadline",
	}
	for _, in := range inputs {
		got := e.Classify(in)
		assert.NotEmpty(t, got.Location, in)
		assert.NotEmpty(t, got.Utility, in)
		assert.True(t, validTypes[got.UtilityType], in)
		assert.True(t, validStages[got.Stage], in)
		assert.True(t, got.Priority.Valid(), in)
		assert.Equal(t, got, e.Classify(in), "same input, same output")
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	kw := extractor.NewKeywords([]string{"municipal", "public power", "takeover"})
	assert.True(t, kw.Contains("Commission reviews MUNICIPAL franchise"))
	assert.False(t, kw.Contains("Rate case decision"))

	empty := extractor.NewKeywords(nil)
	assert.False(t, empty.Contains("municipal"))
}
