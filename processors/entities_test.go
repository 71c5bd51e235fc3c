package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexExtractorFindsCapitalizedRuns(t *testing.T) {
	entities := RegexEntityExtractor{}.ExtractEntities(context.Background(),
		"today we compare Kubernetes with Docker Swarm for small clusters")
	assert.Equal(t, []string{"Docker Swarm", "Kubernetes"}, entities)
}

func TestRegexExtractorSkipsStopwords(t *testing.T) {
	entities := RegexEntityExtractor{}.ExtractEntities(context.Background(),
		"Well the thing is That it works")
	assert.Empty(t, entities)
}

func TestRegexExtractorKeepsStopwordLedRuns(t *testing.T) {
	// Multi-word runs survive even when they start with a stopword.
	entities := RegexEntityExtractor{}.ExtractEntities(context.Background(),
		"reading The New York Times today")
	assert.Equal(t, []string{"The New York Times"}, entities)
}

func TestRegexExtractorDeduplicates(t *testing.T) {
	entities := RegexEntityExtractor{}.ExtractEntities(context.Background(),
		"Golang and golang and Golang again")
	assert.Equal(t, []string{"Golang"}, entities)
}

type emptyExtractor struct{}

func (emptyExtractor) ExtractEntities(context.Context, string) []string { return nil }

func TestChainFallsBackWhenPrimaryEmpty(t *testing.T) {
	chain := ChainExtractor{
		Primary:  emptyExtractor{},
		Fallback: fixedExtractor{entities: []string{"Fallback"}},
	}
	assert.Equal(t, []string{"Fallback"}, chain.ExtractEntities(context.Background(), "x"))
}

func TestChainPrefersPrimary(t *testing.T) {
	chain := ChainExtractor{
		Primary:  fixedExtractor{entities: []string{"Primary"}},
		Fallback: fixedExtractor{entities: []string{"Fallback"}},
	}
	assert.Equal(t, []string{"Primary"}, chain.ExtractEntities(context.Background(), "x"))
}

func TestChainNilMembers(t *testing.T) {
	assert.Nil(t, ChainExtractor{}.ExtractEntities(context.Background(), "x"))
	assert.Equal(t, []string{"F"},
		ChainExtractor{Fallback: fixedExtractor{entities: []string{"F"}}}.ExtractEntities(context.Background(), "x"))
}

func TestDedupeEntitiesTrimsAndSorts(t *testing.T) {
	assert.Equal(t, []string{"Alpha", "beta"}, dedupeEntities([]string{" beta ", "Alpha", "", "BETA"}))
}
