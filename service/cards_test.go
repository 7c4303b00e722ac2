package service_test

import (
	"testing"

	"github.com/TIANLI0/LeafScan/model"
	"github.com/TIANLI0/LeafScan/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupDiseaseCardsMaxConfidence(t *testing.T) {
	first := &model.Advice{ThaiName: "first"}
	second := &model.Advice{ThaiName: "second"}

	cards := service.GroupDiseaseCards([]model.Prediction{
		{Label: "X", IsDisease: true, Confidence: 0.4, Advice: first},
		{Label: "X", IsDisease: true, Confidence: 0.9, Advice: second},
	})

	require.Len(t, cards, 1)
	assert.Equal(t, "X", cards[0].Label)
	assert.Equal(t, 0.9, cards[0].MaxConfidence)
	assert.Same(t, first, cards[0].Advice)
}

func TestGroupDiseaseCardsSkipsNonDisease(t *testing.T) {
	cards := service.GroupDiseaseCards([]model.Prediction{
		{Label: "non-disease", Confidence: 0.8},
		{Label: "Mealybug", Confidence: 0.7},
	})

	require.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestGroupDiseaseCardsSorted(t *testing.T) {
	cards := service.GroupDiseaseCards([]model.Prediction{
		{Label: "a", IsDisease: true, Confidence: 0.3},
		{Label: "b", IsDisease: true, Confidence: 0.9},
		{Label: "c", IsDisease: true, Confidence: 0.5},
		{Label: "skip", Confidence: 0.99},
	})

	require.Len(t, cards, 3)
	assert.Equal(t, []float64{0.9, 0.5, 0.3}, []float64{cards[0].MaxConfidence, cards[1].MaxConfidence, cards[2].MaxConfidence})
	assert.Equal(t, []string{"b", "c", "a"}, []string{cards[0].Label, cards[1].Label, cards[2].Label})
}

func TestGroupDiseaseCardsEmpty(t *testing.T) {
	assert.Empty(t, service.GroupDiseaseCards(nil))
}
