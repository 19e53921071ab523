package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gto-trainer/internal/session"
)

func gtoFreq(v float64) *float64 { return &v }

func TestPickChoiceBestTakesHighestEV(t *testing.T) {
	options := []session.OptionView{
		{Key: "fold", EV: 0},
		{Key: "call", EV: 1.5},
		{Key: "jam", EV: -2},
	}
	assert.Equal(t, 1, pickChoice(options, "best"))
}

func TestPickChoiceGTOTakesHighestFrequency(t *testing.T) {
	options := []session.OptionView{
		{Key: "fold", EV: 0, GTOFreq: gtoFreq(0.1)},
		{Key: "call", EV: 1.5, GTOFreq: gtoFreq(0.7)},
		{Key: "jam", EV: 2.0, GTOFreq: gtoFreq(0.2)},
	}
	assert.Equal(t, 1, pickChoice(options, "gto"))
}

func TestPickChoiceGTOFallsBackToEVWithoutFrequencies(t *testing.T) {
	options := []session.OptionView{
		{Key: "fold", EV: 0},
		{Key: "call", EV: 1.5},
	}
	assert.Equal(t, 1, pickChoice(options, "gto"))
}
