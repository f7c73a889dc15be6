package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		pattern  string
		elements []TemplateElement
		maxArg   int
	}{
		{"{0} like {1}", []TemplateElement{{Arg: 0}, {Text: " like ", Arg: -1}, {Arg: 1}}, 1},
		{"count({0})", []TemplateElement{{Text: "count(", Arg: -1}, {Arg: 0}, {Text: ")", Arg: -1}}, 0},
		{"now()", []TemplateElement{{Text: "now()", Arg: -1}}, -1},
		{"{x} and {}", []TemplateElement{{Text: "{x} and {}", Arg: -1}}, -1},
		{"{1} in {0}", []TemplateElement{{Arg: 1}, {Text: " in ", Arg: -1}, {Arg: 0}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, tmpl.Text())
			assert.Equal(t, tt.elements, tmpl.Elements())
			assert.Equal(t, tt.maxArg, tmpl.MaxArg())
		})
	}
}

func TestParseTemplate_NegativeIndex(t *testing.T) {
	_, err := ParseTemplate("{-1}")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Panics(t, func() { MustParseTemplate("{-2}") })
}

func TestTemplateExpression(t *testing.T) {
	te, err := NewTemplateExpression(BoolType, "soundex({0}) = soundex({1})", catName, ConstantOf("Tom"))
	require.NoError(t, err)
	assert.Equal(t, "soundex(cat.name) = soundex(Tom)", te.String())
	assert.True(t, IsPredicate(te))
	assert.True(t, Equal(te, MustTemplate(BoolType, "soundex({0}) = soundex({1})", catName, ConstantOf("Tom"))))

	_, err = NewTemplateExpression(BoolType, "{0} = {1}", catName)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewTemplateExpression(BoolType, "{0}", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLiteral(t *testing.T) {
	l := Literal(IntType, "{0}")
	assert.Equal(t, "{0}", l.String())
	assert.Empty(t, l.Args())
	assert.Equal(t, "null", Null.String())
}
