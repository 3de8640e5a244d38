package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vincentdare/auto-extractor/config"
)

func TestMoneyTripleTakesLastThreeSurvivors(t *testing.T) {
	e := newExtractor()

	// The year and the 16-digit identifier are filtered out; the last three
	// survivors become (appraisal, loan amount, fee) in order.
	a, l, f := e.MoneyTriple("2024 1234567890123456 1,500,000 3,000,000 75,000")
	assert.Equal(t, int64(1_500_000), a)
	assert.Equal(t, int64(3_000_000), l)
	assert.Equal(t, int64(75_000), f)
}

func TestMoneyTripleRightAlignsWhenShort(t *testing.T) {
	e := newExtractor()

	a, l, f := e.MoneyTriple("1,500,000 75,000")
	assert.Zero(t, a)
	assert.Equal(t, int64(1_500_000), l)
	assert.Equal(t, int64(75_000), f)

	a, l, f = e.MoneyTriple("75,000")
	assert.Zero(t, a)
	assert.Zero(t, l)
	assert.Equal(t, int64(75_000), f)

	a, l, f = e.MoneyTriple("no amounts at all")
	assert.Zero(t, a)
	assert.Zero(t, l)
	assert.Zero(t, f)
}

func TestMoneyCandidatesFilterPhoneValues(t *testing.T) {
	e := newExtractor()

	// A mobile number read as an integer lands in the 0.8e9..9e11 band and
	// must not be mistaken for an amount.
	a, l, f := e.MoneyTriple("08123456789 1,500,000 3,000,000 75,000")
	assert.Equal(t, int64(1_500_000), a)
	assert.Equal(t, int64(3_000_000), l)
	assert.Equal(t, int64(75_000), f)
}

func TestMoneyCandidatesFilterDeniedTotals(t *testing.T) {
	e := newExtractor()

	a, l, f := e.MoneyTriple("901,392,824 1,500,000 3,000,000 75,000")
	assert.Equal(t, int64(1_500_000), a)
	assert.Equal(t, int64(3_000_000), l)
	assert.Equal(t, int64(75_000), f)
}

func TestMoneyCandidatesIgnoreTotalLine(t *testing.T) {
	e := newExtractor()

	a, l, f := e.MoneyTriple("1,500,000 3,000,000 75,000 TOTAL 999,999,000")
	assert.Equal(t, int64(1_500_000), a)
	assert.Equal(t, int64(3_000_000), l)
	assert.Equal(t, int64(75_000), f)
}

func TestMoneyCandidatesRespectConfiguredRange(t *testing.T) {
	cfg := config.DefaultPipelineConfig().Extract
	cfg.MoneyMin = 1000
	e := New(cfg)

	// 500 falls under the configured minimum and is dropped.
	a, l, f := e.MoneyTriple("500 1,500,000 3,000,000 75,000")
	assert.Equal(t, int64(1_500_000), a)
	assert.Equal(t, int64(3_000_000), l)
	assert.Equal(t, int64(75_000), f)
}

func TestDigitsValue(t *testing.T) {
	assert.Equal(t, int64(1_500_000), digitsValue("1,500,000"))
	assert.Equal(t, int64(1_500_000), digitsValue("1.500.000"))
	assert.Equal(t, int64(0), digitsValue(""))
	assert.Equal(t, int64(0), digitsValue("Rp"))
}
