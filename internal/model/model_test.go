package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen%d", n)
	}
}

func TestBlocksJSONRoundTripKeepsOrderAndKinds(t *testing.T) {
	in := Blocks{
		&Item{ID: "a", Title: "A", Text: "alpha", Enabled: true},
		&Group{ID: "g", Title: "G", Enabled: false, Items: []*Item{
			{ID: "b", Title: "B", Text: "beta", Enabled: true},
		}},
		&Item{ID: "c", Title: "C", Text: "gamma"},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Blocks
	require.NoError(t, json.Unmarshal(b, &out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBlocksMarshalWritesTypeAndEmptyItems(t *testing.T) {
	b, err := json.Marshal(Blocks{&Group{ID: "g", Title: "G", Enabled: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"group","id":"g","title":"G","enabled":true,"collapsed":false,"items":[]}]`, string(b))
}

func TestBlocksUnmarshalDropsUnknownTypes(t *testing.T) {
	var out Blocks
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"note","id":"x"},{"type":"item","id":"y"}]`), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "y", out[0].BlockID())
	assert.True(t, out[0].(*Item).Enabled, "missing enabled defaults to true")
}

func TestDecodeExtensionRepairsMalformedData(t *testing.T) {
	raw := `{
		"version": 0,
		"blocks": [
			{"type":"item","id":"  ","title":"","text":42,"enabled":"false"},
			{"type":"group","id":7,"title":"  Traits ","items":[{"id":"i1","text":"kind"}, "junk"],
			 "adv":{"connections":{"enabled":true,"chats":[" c1 ", "", null, 3]}}},
			"junk",
			{"type":"unknown"}
		],
		"settings": {"wrapperEnabled":"yes","wrapperTemplate":"[{{PROMPT}}]"},
		"linkedToNative": false,
		"local": {"description":"mine","depth":"4"}
	}`
	ext, err := DecodeExtension([]byte(raw))
	require.NoError(t, err)

	require.Len(t, ext.Blocks, 2)
	it := ext.Blocks[0].(*Item)
	assert.Equal(t, "", it.ID, "blank ids are left for Normalize")
	assert.Equal(t, "42", it.Text)
	assert.False(t, it.Enabled)
	require.NotNil(t, it.Advanced)
	assert.False(t, it.Auto())

	g := ext.Blocks[1].(*Group)
	assert.Equal(t, "7", g.ID)
	assert.Equal(t, "Traits", g.Title)
	assert.True(t, g.Enabled)
	require.Len(t, g.Items, 1)
	assert.True(t, g.Items[0].Enabled)
	assert.Equal(t, []string{"c1", "3"}, g.Advanced.Connections.Chats)
	assert.True(t, g.Auto())

	assert.Equal(t, SchemaVersion, ext.Version)
	assert.False(t, ext.Settings.WrapperEnabled, "non-bool falls back to default")
	assert.Equal(t, "[{{PROMPT}}]", ext.Settings.WrapperTemplate)
	assert.Equal(t, DefaultAdditionalJoiner, ext.Settings.AdditionalJoiner)
	assert.False(t, ext.LinkedToNative)
	assert.Equal(t, Local{Description: "mine", Position: PositionInPrompt, Depth: 4, Role: RoleSystem}, ext.Local)
}

func TestDecodeExtensionNonObjectYieldsFreshRecord(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", `"x"`} {
		ext, err := DecodeExtension([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, NewExtension(), ext, raw)
	}

	_, err := DecodeExtension([]byte("{"))
	assert.Error(t, err)
}

func TestNormalizeRegeneratesBlankAndDuplicateIDs(t *testing.T) {
	ext := NewExtension()
	ext.Blocks = Blocks{
		&Item{ID: "x"},
		&Group{ID: "x", Items: []*Item{{ID: ""}, {ID: "y"}, nil}},
		&Item{ID: " y "},
	}
	ext.Normalize(seqIDs())

	ids := []string{}
	for id := range ext.Blocks.IDs() {
		ids = append(ids, id)
	}
	assert.Len(t, ids, 5, "every id in the tree is unique")
	assert.Equal(t, "x", ext.Blocks[0].BlockID())
	assert.Equal(t, "gen1", ext.Blocks[1].BlockID())

	g := ext.Blocks[1].(*Group)
	assert.Equal(t, "Group", g.Title)
	require.Len(t, g.Items, 2)
	assert.Equal(t, "Item", g.Items[0].Title)
	assert.NotNil(t, g.Items[0].Advanced)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	ext := NewExtension()
	ext.Blocks = Blocks{&Item{ID: "a", Title: "A"}, &Group{ID: "g", Title: "G"}}
	ext.Normalize(seqIDs())
	b1, _ := json.Marshal(ext)
	ext.Normalize(seqIDs())
	b2, _ := json.Marshal(ext)
	assert.JSONEq(t, string(b1), string(b2))
}

func TestDecodeDescriptor(t *testing.T) {
	d, err := DecodeDescriptor([]byte(`{"description":"native","position":"4","depth":null}`))
	require.NoError(t, err)
	assert.Equal(t, "native", d.Description)
	assert.Equal(t, PositionAtDepth, d.Position)
	assert.Equal(t, DefaultDepth, d.Depth)
	assert.Nil(t, d.Pme)
	assert.True(t, d.Linked())

	d, err = DecodeDescriptor([]byte(`{"description":"native","pme":{"linkedToNative":false,"local":{"description":"local"}}}`))
	require.NoError(t, err)
	assert.False(t, d.Linked())
	assert.Equal(t, "local", d.EffectiveDescription())
}

func TestParseMatchRule(t *testing.T) {
	tests := []struct {
		query   string
		regexp  bool
		wantErr bool
	}{
		{query: "dragon"},
		{query: "/dragon/"},
		{query: "/drag(on|oon)/i", regexp: true},
		{query: "/^a.b$/ms", regexp: true},
		{query: "/x/gu", regexp: true},
		{query: "/x/q", wantErr: true},
		{query: "/(/", wantErr: true},
		{query: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r, err := ParseMatchRule(tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.query == "/dragon/" {
				assert.True(t, r.IsRegexp())
				return
			}
			assert.Equal(t, tt.regexp, r.IsRegexp())
		})
	}

	r, err := ParseMatchRule("/DRAGON/i")
	require.NoError(t, err)
	assert.True(t, r.Regexp.MatchString("a dragon appears"))
}

func TestParsePositionAndRole(t *testing.T) {
	p, err := ParsePosition("at_depth")
	require.NoError(t, err)
	assert.Equal(t, PositionAtDepth, p)
	p, err = ParsePosition("9")
	require.NoError(t, err)
	assert.Equal(t, PositionNone, p)
	_, err = ParsePosition("1")
	assert.Error(t, err)

	r, err := ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)
	assert.Equal(t, "user", RoleUser.String())
}

func TestMatchRuleMatch(t *testing.T) {
	lit, err := ParseMatchRule("Tea")
	require.NoError(t, err)
	assert.True(t, lit.Match("likes green tea"))
	assert.False(t, lit.Match("coffee"))

	re, err := ParseMatchRule(`/^t.a$/i`)
	require.NoError(t, err)
	assert.True(t, re.Match("TEA"))
	assert.False(t, re.Match("green tea"))
}
