package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scenariochat/scenario"
)

func knownScenarios() []scenario.Info {
	return []scenario.Info{
		{ID: "base", Name: "Base"},
		{ID: "highdemand", Name: "HighDemand"},
		{ID: "low-cost", Name: "Low Cost"},
	}
}

func TestExtractScenariosOrderAndDedup(t *testing.T) {
	got := ExtractScenarios("compare HighDemand against base, then base again", knownScenarios())
	assert.Len(t, got, 2)
	assert.Equal(t, "highdemand", got[0].ID)
	assert.Equal(t, "base", got[1].ID)
}

func TestExtractScenariosCaseInsensitive(t *testing.T) {
	got := ExtractScenarios("what changed in BASE?", knownScenarios())
	assert.Len(t, got, 1)
	assert.Equal(t, "base", got[0].ID)
}

func TestExtractScenariosPlural(t *testing.T) {
	got := ExtractScenarios("show both bases side by side", knownScenarios())
	assert.Len(t, got, 1)
	assert.Equal(t, "base", got[0].ID)
}

func TestExtractScenariosMultiWordName(t *testing.T) {
	got := ExtractScenarios("compare low cost with base", knownScenarios())
	assert.Len(t, got, 2)
	assert.Equal(t, "low-cost", got[0].ID)
	assert.Equal(t, "base", got[1].ID)
}

func TestExtractScenariosUnknownDropped(t *testing.T) {
	got := ExtractScenarios("compare base against FantasyLand", knownScenarios())
	assert.Len(t, got, 1)
	assert.Equal(t, "base", got[0].ID)
}

func TestExtractScenariosNoWordBoundaryFalsePositive(t *testing.T) {
	// "database" contains "base" but is not a mention of the Base scenario
	got := ExtractScenarios("how big is the database?", knownScenarios())
	assert.Empty(t, got)
}

func TestExtractScenariosEmptyRequest(t *testing.T) {
	assert.Empty(t, ExtractScenarios("", knownScenarios()))
	assert.Empty(t, ExtractScenarios("compare base and highdemand", nil))
}
