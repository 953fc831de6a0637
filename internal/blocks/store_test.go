package blocks

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/persona-extended/internal/model"
)

type fakeHost struct {
	persona *model.PersonaDescriptor
	live    *model.LiveConfig
}

func (h *fakeHost) Current() *model.PersonaDescriptor { return h.persona }
func (h *fakeHost) Live() *model.LiveConfig           { return h.live }

type countingSaver struct{ n int }

func (c *countingSaver) Schedule() { c.n++ }

func newTestStore(t *testing.T) (*Store, *fakeHost, *countingSaver) {
	t.Helper()
	live := model.DefaultLiveConfig()
	host := &fakeHost{persona: &model.PersonaDescriptor{}, live: &live}
	saver := &countingSaver{}
	n := 0
	s := New(host, saver, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}))
	return s, host, saver
}

func ids(bs model.Blocks) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.BlockID())
	}
	return out
}

func TestDataInitializesPersona(t *testing.T) {
	s, host, saver := newTestStore(t)

	data := s.Data()
	require.NotNil(t, host.persona.Pme)
	assert.Equal(t, model.SchemaVersion, data.Version)
	assert.Empty(t, data.Blocks)
	assert.Equal(t, model.DefaultSettings(), data.Settings)
	assert.True(t, s.Linked())
	assert.Equal(t, 0, saver.n, "reading never schedules a save")

	assert.Same(t, data, s.Data(), "repeated reads return the same record")
}

func TestAddItemAndGroupTitles(t *testing.T) {
	s, _, saver := newTestStore(t)

	i1 := s.AddItem()
	g1 := s.AddGroup("")
	i2 := s.AddItem()
	g2 := s.AddGroup("  Traits  ")
	g3 := s.AddGroup("")

	assert.Equal(t, "Item 1", i1.Title)
	assert.Equal(t, "Item 2", i2.Title, "groups are not counted")
	assert.Equal(t, "Group 1", g1.Title)
	assert.Equal(t, "Traits", g2.Title)
	assert.Equal(t, "Group 3", g3.Title)
	assert.True(t, i1.Enabled)
	assert.False(t, i1.Collapsed)
	assert.NotNil(t, i1.Advanced)
	assert.NotNil(t, g1.Items)
	assert.Equal(t, 5, saver.n)

	assert.Equal(t, []string{i1.ID, g1.ID, i2.ID, g2.ID, g3.ID}, ids(s.List()))
}

func TestAddNeverReusesIDs(t *testing.T) {
	live := model.DefaultLiveConfig()
	host := &fakeHost{persona: &model.PersonaDescriptor{}, live: &live}
	// A generator that keeps handing out ids already in use.
	seq := []string{"a", "a", "b", "a", "b", "c", "", "d"}
	n := 0
	s := New(host, &countingSaver{}, WithIDGenerator(func() string {
		id := seq[n%len(seq)]
		n++
		return id
	}))

	s.AddItem()
	s.AddGroup("")
	g := s.List()[1].(*model.Group)
	s.AddItemToGroup(g.ID)
	s.AddItem()

	seen := map[string]bool{}
	for _, b := range s.List() {
		require.False(t, seen[b.BlockID()], "duplicate id %s", b.BlockID())
		seen[b.BlockID()] = true
		if g, ok := b.(*model.Group); ok {
			for _, it := range g.Items {
				require.False(t, seen[it.ID], "duplicate id %s", it.ID)
				seen[it.ID] = true
			}
		}
	}
	assert.Len(t, seen, 4)
}

func TestAddItemToGroup(t *testing.T) {
	s, _, saver := newTestStore(t)
	g := s.AddGroup("G")

	a := s.AddItemToGroup(g.ID)
	b := s.AddItemToGroup(g.ID)
	require.NotNil(t, a)
	assert.Equal(t, "Item 1", a.Title)
	assert.Equal(t, "Item 2", b.Title)
	assert.Len(t, g.Items, 2)

	before := saver.n
	assert.Nil(t, s.AddItemToGroup("missing"))
	assert.Nil(t, s.AddItemToGroup(a.ID), "an item is not a group")
	assert.Equal(t, before, saver.n)
}

func TestPatchItemTopLevelAndNested(t *testing.T) {
	s, _, _ := newTestStore(t)
	top := s.AddItem()
	g := s.AddGroup("")
	nested := s.AddItemToGroup(g.ID)

	text := "likes tea"
	off := false
	s.PatchItem(top.ID, ItemPatch{Text: &text})
	s.PatchItem(nested.ID, ItemPatch{Enabled: &off})

	assert.Equal(t, "likes tea", top.Text)
	assert.Equal(t, "Item 1", top.Title, "unset fields are kept")
	assert.False(t, nested.Enabled)
}

func TestPatchAlwaysSchedulesSave(t *testing.T) {
	s, _, saver := newTestStore(t)
	title := "x"

	s.PatchItem("missing", ItemPatch{Title: &title})
	s.PatchGroup("missing", GroupPatch{Title: &title})
	assert.Equal(t, 2, saver.n)
	assert.Empty(t, s.List())
}

func TestPatchGroup(t *testing.T) {
	s, _, _ := newTestStore(t)
	g := s.AddGroup("")
	item := s.AddItem()

	title := "Renamed"
	off := true
	adv := model.DefaultAdvanced()
	adv.Match = model.Match{Enabled: true, Query: "/tea/i"}
	s.PatchGroup(g.ID, GroupPatch{Title: &title, Collapsed: &off, Advanced: adv})
	s.PatchGroup(item.ID, GroupPatch{Title: &title})

	assert.Equal(t, "Renamed", g.Title)
	assert.True(t, g.Collapsed)
	assert.True(t, g.Auto())
	assert.NotSame(t, adv, g.Advanced, "advanced metadata is copied")
	assert.Equal(t, "Item 1", item.Title, "patching a group never touches items")
}

func TestRemoveItemEverywhere(t *testing.T) {
	s, _, _ := newTestStore(t)
	a := s.AddItem()
	g := s.AddGroup("")
	n := s.AddItemToGroup(g.ID)
	keep := s.AddItemToGroup(g.ID)

	s.RemoveItem(a.ID)
	s.RemoveItem(n.ID)
	s.RemoveItem("missing")

	assert.Equal(t, []string{g.ID}, ids(s.List()))
	group := s.List()[0].(*model.Group)
	require.Len(t, group.Items, 1)
	assert.Equal(t, keep.ID, group.Items[0].ID)
}

func TestRemoveGroup(t *testing.T) {
	s, _, _ := newTestStore(t)
	a := s.AddItem()
	g := s.AddGroup("")
	s.AddItemToGroup(g.ID)

	s.RemoveGroup(a.ID)
	assert.Len(t, s.List(), 2, "removing a group by an item id does nothing")

	s.RemoveGroup(g.ID)
	assert.Equal(t, []string{a.ID}, ids(s.List()))
}

func TestMoveBlock(t *testing.T) {
	s, _, saver := newTestStore(t)
	a := s.AddItem()
	b := s.AddGroup("")
	c := s.AddItem()

	tests := []struct {
		name  string
		id    string
		delta int
		want  []string
		saved bool
	}{
		{"down", a.ID, 1, []string{b.ID, a.ID, c.ID}, true},
		{"up", c.ID, -5, []string{b.ID, c.ID, a.ID}, true},
		{"top edge", b.ID, -1, []string{b.ID, c.ID, a.ID}, false},
		{"bottom edge", a.ID, 1, []string{b.ID, c.ID, a.ID}, false},
		{"zero delta", c.ID, 0, []string{b.ID, c.ID, a.ID}, false},
		{"missing", "nope", 1, []string{b.ID, c.ID, a.ID}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := saver.n
			s.MoveBlock(tt.id, tt.delta)
			if diff := cmp.Diff(tt.want, ids(s.List())); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.saved, saver.n > before)
		})
	}
}

func TestMoveItemInGroup(t *testing.T) {
	s, _, _ := newTestStore(t)
	g := s.AddGroup("")
	a := s.AddItemToGroup(g.ID)
	b := s.AddItemToGroup(g.ID)
	top := s.AddItem()

	s.MoveItemInGroup(g.ID, a.ID, 1)
	assert.Equal(t, []string{b.ID, a.ID}, []string{g.Items[0].ID, g.Items[1].ID})

	s.MoveItemInGroup(g.ID, a.ID, 1)
	s.MoveItemInGroup(g.ID, top.ID, -1)
	s.MoveItemInGroup("missing", a.ID, -1)
	assert.Equal(t, []string{b.ID, a.ID}, []string{g.Items[0].ID, g.Items[1].ID})
}

func TestPatchSettings(t *testing.T) {
	s, _, _ := newTestStore(t)
	on := true
	joiner := `\n---\n`
	s.PatchSettings(SettingsPatch{WrapperEnabled: &on, AdditionalJoiner: &joiner})

	got := s.Settings()
	assert.True(t, got.WrapperEnabled)
	assert.Equal(t, model.DefaultWrapperTemplate, got.WrapperTemplate)
	assert.Equal(t, joiner, got.AdditionalJoiner)
}

func TestNoCurrentPersonaIsNoOp(t *testing.T) {
	host := &fakeHost{}
	s := New(host, &countingSaver{})

	s.AddItem()
	s.AddGroup("x")
	s.MoveBlock("x", 1)
	assert.Empty(t, s.List())
}
