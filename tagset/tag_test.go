package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: []string{}},
		{name: "only separators", in: " , ,, ", want: []string{}},
		{name: "trims and drops blanks", in: " a , b ,, c ", want: []string{"a", "b", "c"}},
		{name: "keeps case and inner spaces", in: "Sunset Beach,sunset", want: []string{"Sunset Beach", "sunset"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, Parse(testCase.in))
		})
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	got := Parse(Serialize(Parse(" a , b ,, c ")))
	assert.Equal(t, []string{"a", "b", "c"}, got)

	xs := []string{"retro", "sunset beach", "Cat"}
	assert.Equal(t, xs, Parse(Serialize(xs)))
	assert.Equal(t, "retro, sunset beach, Cat", Serialize(xs))
}

func TestParseIsIdempotent(t *testing.T) {
	inputs := []string{"", "a", " x ,y,, z", "one,two,three,"}
	for _, in := range inputs {
		once := Parse(in)
		assert.Equal(t, once, Parse(Serialize(once)), in)
	}
}

func TestClampRisk(t *testing.T) {
	assert.Equal(t, RiskSafe, ClampRisk(-3))
	assert.Equal(t, RiskSafe, ClampRisk(0))
	assert.Equal(t, RiskScore(4), ClampRisk(4))
	assert.Equal(t, RiskDanger, ClampRisk(9))
	assert.True(t, RiskCaution.Valid())
	assert.False(t, RiskScore(6).Valid())
}

func TestFromString(t *testing.T) {
	assert.Equal(t, []Tag{{Text: "Nike", RiskScore: 1}, {Text: "sunset", RiskScore: 1}}, FromString("Nike,sunset"))
	assert.Equal(t, []string{"Nike", "sunset"}, Texts(FromString("Nike, sunset")))
}
