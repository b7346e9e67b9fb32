package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule_ListForm(t *testing.T) {
	node, err := ParseRule([]byte(`{"AND":[{"NOT":[{"EventTag.name":"%osint%"}]},{"OR":[{"Tag.name":["tlp:green","tlp:amber"]}]}]}`), DefaultRuleLimits())
	require.NoError(t, err)

	and, ok := node.(*Connective)
	require.True(t, ok)
	assert.Equal(t, OpAND, and.Op)
	require.Len(t, and.Children, 2)

	not := and.Children[0].(*Connective)
	assert.Equal(t, OpNOT, not.Op)
	require.Len(t, not.Children, 1)
	assert.Equal(t, &Predicate{Field: FieldEventTagName, Values: []string{"%osint%"}}, not.Children[0])

	or := and.Children[1].(*Connective)
	assert.Equal(t, OpOR, or.Op)
	assert.Equal(t, &Predicate{Field: FieldTagName, Values: []string{"tlp:green", "tlp:amber"}}, or.Children[0])
}

func TestParseRule_MappingFormKeepsKeyOrder(t *testing.T) {
	def, ok := LookupSetting(SettingPublishAlertFilter)
	require.True(t, ok)

	node, err := ParseRule(def.Placeholder, DefaultRuleLimits())
	require.NoError(t, err)

	and := node.(*Connective)
	require.Len(t, and.Children, 2)
	assert.Equal(t, OpNOT, and.Children[0].(*Connective).Op)
	assert.Equal(t, OpOR, and.Children[1].(*Connective).Op)
	assert.NoError(t, ValidateRule(node))
}

func TestParseRule_YAML(t *testing.T) {
	doc := `
OR:
  - Orgc.name: CIRCL
  - Orgc.uuid:
      - 5f6e7d8c-0000-4000-8000-000000000001
`
	node, err := ParseRule([]byte(doc), DefaultRuleLimits())
	require.NoError(t, err)
	or := node.(*Connective)
	require.Len(t, or.Children, 2)
	assert.Equal(t, FieldOrgcName, or.Children[0].(*Predicate).Field)
	assert.Equal(t, []string{"5f6e7d8c-0000-4000-8000-000000000001"}, or.Children[1].(*Predicate).Values)
}

func TestParseRule_MultiKeyListElementExpands(t *testing.T) {
	node, err := ParseRule([]byte(`{"OR":[{"Orgc.name":"A","EventTag.name":"b"}]}`), DefaultRuleLimits())
	require.NoError(t, err)
	or := node.(*Connective)
	require.Len(t, or.Children, 2)
	assert.Equal(t, FieldOrgcName, or.Children[0].(*Predicate).Field)
	assert.Equal(t, FieldEventTagName, or.Children[1].(*Predicate).Field)
}

func TestParseRule_MultiKeyRootIsImplicitAND(t *testing.T) {
	node, err := ParseRule([]byte(`{"Orgc.name":"A","EventTag.name":"b"}`), DefaultRuleLimits())
	require.NoError(t, err)
	and, ok := node.(*Connective)
	require.True(t, ok)
	assert.Equal(t, OpAND, and.Op)
	assert.Len(t, and.Children, 2)
}

func TestParseRule_EmptyDocuments(t *testing.T) {
	for _, doc := range []string{"", "  ", "{}", "[]", "null", "~"} {
		node, err := ParseRule([]byte(doc), DefaultRuleLimits())
		require.NoError(t, err, "document %q", doc)
		assert.Nil(t, node, "document %q should mean no rule", doc)
	}
}

func TestParseRule_EmptyConnective(t *testing.T) {
	node, err := ParseRule([]byte(`{"AND":[]}`), DefaultRuleLimits())
	require.NoError(t, err)
	and := node.(*Connective)
	assert.Empty(t, and.Children)
}

func TestParseRule_MalformedFragments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"connective with scalar", `{"AND":"tlp:green"}`},
		{"connective with null", `{"OR":null}`},
		{"lookup with mapping", `{"Tag.name":{"x":"y"}}`},
		{"lookup with nested list", `{"Tag.name":[["a"]]}`},
		{"lookup with null", `{"Tag.name":null}`},
		{"scalar root", `"tlp:green"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := ParseRule([]byte(tt.doc), DefaultRuleLimits())
			require.NoError(t, err, "structural faults must not be parse errors")
			assert.Equal(t, KindMalformed, node.Kind())
			assert.ErrorIs(t, ValidateRule(node), ErrInvalidRule)
		})
	}
}

func TestParseRule_NonMappingListItem(t *testing.T) {
	node, err := ParseRule([]byte(`{"OR":["tlp:green",{"Tag.name":"x"}]}`), DefaultRuleLimits())
	require.NoError(t, err)
	or := node.(*Connective)
	require.Len(t, or.Children, 2)
	assert.Equal(t, KindMalformed, or.Children[0].Kind())
	assert.Equal(t, KindPredicate, or.Children[1].Kind())
}

func TestParseRule_UnknownFieldPath(t *testing.T) {
	node, err := ParseRule([]byte(`{"Event.info":"x"}`), DefaultRuleLimits())
	require.NoError(t, err)
	p := node.(*Predicate)
	assert.False(t, p.Field.IsKnown())

	var ruleErr *RuleError
	require.True(t, errors.As(ValidateRule(node), &ruleErr))
	assert.Equal(t, "Event.info", ruleErr.Path)
}

func TestParseRule_ScalarsAreStringified(t *testing.T) {
	node, err := ParseRule([]byte(`{"Orgc.name":[42, true]}`), DefaultRuleLimits())
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "true"}, node.(*Predicate).Values)
}

func TestParseRule_SyntaxError(t *testing.T) {
	_, err := ParseRule([]byte(`{"AND": [`), DefaultRuleLimits())
	assert.ErrorIs(t, err, ErrRuleSyntax)
}

func TestParseRule_TabIndentedJSON(t *testing.T) {
	doc := "{\n\t\"OR\": [\n\t\t{\"Tag.name\": \"tlp:green\"}\n\t]\n}"
	node, err := ParseRule([]byte(doc), DefaultRuleLimits())
	require.NoError(t, err)
	assert.Equal(t, KindConnective, node.Kind())
}

func TestParseRule_DepthLimit(t *testing.T) {
	doc := strings.Repeat(`{"NOT":[`, 5) + `{"Tag.name":"x"}` + strings.Repeat(`]}`, 5)

	_, err := ParseRule([]byte(doc), RuleLimits{MaxDepth: 5, MaxNodes: 100})
	assert.ErrorIs(t, err, ErrRuleTooDeep)

	node, err := ParseRule([]byte(doc), RuleLimits{MaxDepth: 6, MaxNodes: 100})
	require.NoError(t, err)
	assert.Equal(t, 6, CountNodes(node))
}

func TestParseRule_NodeLimitCountsLookupValues(t *testing.T) {
	doc := `{"OR":[{"Tag.name":["a","b","c"]}]}`

	_, err := ParseRule([]byte(doc), RuleLimits{MaxDepth: 10, MaxNodes: 4})
	assert.ErrorIs(t, err, ErrRuleTooLarge)

	_, err = ParseRule([]byte(doc), RuleLimits{MaxDepth: 10, MaxNodes: 5})
	assert.NoError(t, err)
}

func TestRuleFromValue(t *testing.T) {
	v := map[string]interface{}{
		"OR": []interface{}{
			map[string]interface{}{"Tag.name": []interface{}{"tlp:green"}},
			map[string]interface{}{"Orgc.name": "CIRCL"},
		},
	}

	node, err := RuleFromValue(v, DefaultRuleLimits())
	require.NoError(t, err)
	or := node.(*Connective)
	require.Len(t, or.Children, 2)
	assert.Equal(t, []string{"tlp:green"}, or.Children[0].(*Predicate).Values)

	node, err = RuleFromValue(nil, DefaultRuleLimits())
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestMarshalRule_RoundTripsThroughParse(t *testing.T) {
	src := `{"AND":[{"NOT":[{"EventTag.name":["%osint%"]}]},{"OR":[{"Tag.name":["tlp:green","tlp:amber"]}]}]}`
	node, err := ParseRule([]byte(src), DefaultRuleLimits())
	require.NoError(t, err)

	out, err := MarshalRule(node)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))

	out, err = MarshalRule(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	_, err = MarshalRule(&Malformed{Key: "AND", Reason: "bad"})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestFormatRule(t *testing.T) {
	node, err := ParseRule([]byte(`{"AND":[{"NOT":[{"EventTag.name":"%osint%"}]}]}`), DefaultRuleLimits())
	require.NoError(t, err)
	assert.Equal(t, "AND\n  NOT\n    EventTag.name in [%osint%]\n", FormatRule(node))
	assert.Equal(t, "(no rule)\n", FormatRule(nil))
}
