package feed

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/model"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func entry(id, created, body string) *model.Entry {
	t := at(created)
	return &model.Entry{EntryID: id, SubjectID: "wp-1", AuthorID: "alice", Body: body, CreatedAt: t, UpdatedAt: t}
}

func cursorAt(ts string, dir model.SortDirection) Cursor {
	return Cursor{LastUpdate: at(ts), Filter: model.FilterAll, Direction: dir}
}

func kinds(ops []Operation) []OpKind {
	out := make([]OpKind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func TestDiff_SameDayNewEntriesShareOneGroup(t *testing.T) {
	a := entry("A", "2024-01-01 10:00", "hi")
	b := entry("B", "2024-01-01 11:00", "")

	ops := Diff(DiffInput{Entries: []*model.Entry{b, a}, Cursor: cursorAt("2024-01-01 09:00", model.SortDesc)})

	require.Len(t, ops, 2)
	assert.Equal(t, OpPrependGroup, ops[0].Kind)
	assert.Equal(t, []string{"A"}, ops[0].EntryIDs)
	assert.Equal(t, "2024-01-01", ops[0].GroupKey.String())
	assert.Equal(t, OpPrependItem, ops[1].Kind)
	assert.Equal(t, "B", ops[1].EntryID)
	assert.Equal(t, "2024-01-01", ops[1].GroupKey.String())
}

func TestDiff_NewDayOpensGroup(t *testing.T) {
	x := entry("X", "2024-01-01 08:00", "first")
	c := entry("C", "2024-01-02 09:00", "next day")

	ops := Diff(DiffInput{Entries: []*model.Entry{x, c}, Cursor: cursorAt("2024-01-01 20:00", model.SortDesc)})

	require.Len(t, ops, 1)
	assert.Equal(t, OpPrependGroup, ops[0].Kind)
	assert.Equal(t, "C", ops[0].EntryID)
	assert.Equal(t, "2024-01-02", ops[0].GroupKey.String())
}

func TestDiff_ModifiedEntryOnlyReplaces(t *testing.T) {
	d := entry("D", "2024-01-01 08:00", "edited")
	d.UpdatedAt = at("2024-01-01 12:00")

	ops := Diff(DiffInput{Entries: []*model.Entry{d}, Cursor: cursorAt("2024-01-01 10:00", model.SortDesc)})

	require.Len(t, ops, 1)
	assert.Equal(t, OpReplaceItem, ops[0].Kind)
	assert.Equal(t, "D", ops[0].EntryID)
	assert.Equal(t, "edited", ops[0].Entry.Body)
}

func TestDiff_EmptyStore(t *testing.T) {
	assert.Empty(t, Diff(DiffInput{Cursor: cursorAt("2024-01-01 10:00", model.SortDesc)}))
}

func TestDiff_SameDayAsLastVisibleInsertsItem(t *testing.T) {
	x := entry("X", "2024-01-01 08:00", "seen")
	n1 := entry("N1", "2024-01-01 10:00", "new")
	n2 := entry("N2", "2024-01-01 11:00", "newer")

	ops := Diff(DiffInput{Entries: []*model.Entry{x, n1, n2}, Cursor: cursorAt("2024-01-01 09:00", model.SortAsc)})

	assert.Equal(t, []OpKind{OpAppendItem, OpAppendItem}, kinds(ops))
	assert.Equal(t, "N1", ops[0].EntryID)
	assert.Equal(t, "N2", ops[1].EntryID)
}

func TestDiff_AscendingAppendsGroups(t *testing.T) {
	n1 := entry("N1", "2024-01-02 10:00", "")
	n2 := entry("N2", "2024-01-03 10:00", "")
	n3 := entry("N3", "2024-01-03 11:00", "")

	ops := Diff(DiffInput{Entries: []*model.Entry{n3, n1, n2}, Cursor: cursorAt("2024-01-01 00:00", model.SortAsc)})

	assert.Equal(t, []OpKind{OpAppendGroup, OpAppendGroup, OpAppendItem}, kinds(ops))
	assert.Equal(t, "2024-01-03", ops[2].GroupKey.String())
}

func TestDiff_ReplacesComeBeforeInserts(t *testing.T) {
	old := entry("OLD", "2024-01-01 08:00", "v1")
	old.UpdatedAt = at("2024-01-01 13:00")
	fresh := entry("NEW", "2024-01-01 12:00", "")

	ops := Diff(DiffInput{Entries: []*model.Entry{fresh, old}, Cursor: cursorAt("2024-01-01 10:00", model.SortDesc)})

	assert.Equal(t, []OpKind{OpReplaceItem, OpPrependItem}, kinds(ops))
}

func TestDiff_NewEntryEditedAfterCreationIsNotReplaced(t *testing.T) {
	n := entry("N", "2024-01-01 12:00", "x")
	n.UpdatedAt = at("2024-01-01 13:00")

	ops := Diff(DiffInput{Entries: []*model.Entry{n}, Cursor: cursorAt("2024-01-01 10:00", model.SortDesc)})

	assert.Equal(t, []OpKind{OpPrependGroup}, kinds(ops))
}

func TestDiff_FilterNarrowsLastVisible(t *testing.T) {
	comment := entry("C", "2024-01-01 08:00", "note")
	change := entry("CH", "2024-01-02 08:00", "")
	fresh := entry("N", "2024-01-02 12:00", "reply")

	cur := cursorAt("2024-01-02 10:00", model.SortDesc)
	cur.Filter = model.FilterOnlyComments
	ops := Diff(DiffInput{Entries: []*model.Entry{comment, change, fresh}, Cursor: cur})

	// the change on 01-02 is hidden, so the client has no group for that day
	assert.Equal(t, []OpKind{OpPrependGroup}, kinds(ops))
}

func TestDiff_ExplicitLastVisible(t *testing.T) {
	seen := entry("S", "2024-01-01 08:00", "seen")
	fresh := entry("N", "2024-01-01 12:00", "new")

	ops := Diff(DiffInput{
		Entries:     []*model.Entry{fresh},
		LastVisible: seen,
		Cursor:      cursorAt("2024-01-01 10:00", model.SortDesc),
	})

	assert.Equal(t, []OpKind{OpPrependItem}, kinds(ops))
}

func TestDiff_DayKeysFollowLocation(t *testing.T) {
	berlin := time.FixedZone("CET", 60*60)

	seen := entry("S", "2024-01-01 20:00", "")  // 21:00 Berlin, Jan 1
	fresh := entry("N", "2024-01-01 23:30", "") // 00:30 Berlin, Jan 2
	cur := cursorAt("2024-01-01 21:00", model.SortDesc)

	utcOps := Diff(DiffInput{Entries: []*model.Entry{seen, fresh}, Cursor: cur})
	berlinOps := Diff(DiffInput{Entries: []*model.Entry{seen, fresh}, Cursor: cur, Location: berlin})

	assert.Equal(t, []OpKind{OpPrependItem}, kinds(utcOps))
	assert.Equal(t, []OpKind{OpPrependGroup}, kinds(berlinOps))
	assert.Equal(t, "2024-01-02", berlinOps[0].GroupKey.String())
}

func TestDiff_IdempotentAfterAdvance(t *testing.T) {
	entries := []*model.Entry{
		entry("A", "2024-01-01 08:00", "a"),
		entry("B", "2024-01-02 08:00", ""),
	}
	entries[0].UpdatedAt = at("2024-01-03 08:00")
	cur := cursorAt("2024-01-01 09:00", model.SortDesc)

	first := Diff(DiffInput{Entries: entries, Cursor: cur})
	require.NotEmpty(t, first)

	second := Diff(DiffInput{Entries: entries, Cursor: cur.Advance(at("2024-01-04 00:00"))})
	assert.Empty(t, second)
}

func TestDiff_DuplicateIDsCollapse(t *testing.T) {
	a := entry("A", "2024-01-01 10:00", "")
	ops := Diff(DiffInput{Entries: []*model.Entry{a, a}, Cursor: cursorAt("2024-01-01 09:00", model.SortDesc)})
	assert.Len(t, ops, 1)
}

// Replaying the diff onto the feed rendered at cursor time must produce the
// feed rebuilt from scratch, for both directions and every filter. Some
// change records gain notes, moving them between the filters.
func TestDiff_ReplayMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := at("2024-03-01 00:00")

	for round := 0; round < 300; round++ {
		var entries []*model.Entry
		noted := map[string]bool{}
		n := rng.Intn(25)
		for i := 0; i < n; i++ {
			created := base.Add(time.Duration(rng.Intn(5*24*60)) * time.Minute)
			e := &model.Entry{EntryID: fmt.Sprintf("e%02d", i), SubjectID: "wp", CreatedAt: created, UpdatedAt: created}
			switch rng.Intn(4) {
			case 0, 1:
				e.Body = "note"
			case 2:
				// a change record that received notes later
				e.Body = "added"
				noted[e.EntryID] = true
			}
			if e.IsComment() && rng.Intn(3) == 0 || noted[e.EntryID] {
				e.UpdatedAt = created.Add(time.Duration(1+rng.Intn(48*60)) * time.Minute)
			}
			entries = append(entries, e)
		}
		ts := base.Add(time.Duration(rng.Intn(6*24*60)) * time.Minute)

		// entries as they were when the client rendered at ts
		var rendered []*model.Entry
		for _, e := range entries {
			if e.CreatedAt.After(ts) {
				continue
			}
			if noted[e.EntryID] && e.UpdatedAt.After(ts) {
				before := *e
				before.Body = ""
				before.UpdatedAt = before.CreatedAt
				rendered = append(rendered, &before)
				continue
			}
			rendered = append(rendered, e)
		}

		for _, dir := range []model.SortDirection{model.SortAsc, model.SortDesc} {
			for _, f := range []model.Filter{model.FilterAll, model.FilterOnlyComments, model.FilterOnlyChanges} {
				policy := PolicyFor(dir)
				idx := NewIndex(policy, nil)
				for _, e := range Select(rendered, f) {
					idx.Add(e)
				}
				ops := Diff(DiffInput{Entries: entries, Cursor: Cursor{LastUpdate: ts, Filter: f, Direction: dir}})
				for _, op := range ops {
					require.NoError(t, idx.Apply(op), "round %d dir %s filter %s", round, dir, f)
				}
				want := Build(entries, f, policy, nil)
				assert.Equal(t, feedShape(want), feedShape(idx.Feed()), "round %d dir %s filter %s", round, dir, f)
			}
		}
	}
}

func TestDiff_ChangeGainingNotesEntersCommentFeed(t *testing.T) {
	ch := entry("CH", "2024-01-01 08:00", "now a comment")
	ch.UpdatedAt = at("2024-01-02 09:00")
	fresh := entry("N", "2024-01-01 12:00", "hello")

	cur := cursorAt("2024-01-01 10:00", model.SortDesc)
	cur.Filter = model.FilterOnlyComments
	ops := Diff(DiffInput{Entries: []*model.Entry{fresh, ch}, Cursor: cur})

	// the client has no group for 01-01 yet; the replace creates it
	require.Equal(t, []OpKind{OpReplaceItem, OpPrependItem}, kinds(ops))
	idx := NewIndex(PolicyFor(model.SortDesc), nil)
	for _, op := range ops {
		require.NoError(t, idx.Apply(op))
	}
	assert.Equal(t, [][]string{{"2024-01-01", "N", "CH"}}, feedShape(idx.Feed()))
}

func TestDiff_ChangeGainingNotesLeavesChangeFeed(t *testing.T) {
	ch := entry("CH", "2024-01-01 08:00", "now a comment")
	ch.UpdatedAt = at("2024-01-01 11:00")
	other := entry("O", "2024-01-01 07:00", "")

	cur := cursorAt("2024-01-01 10:00", model.SortDesc)
	cur.Filter = model.FilterOnlyChanges
	ops := Diff(DiffInput{Entries: []*model.Entry{ch, other}, Cursor: cur})

	require.Equal(t, []OpKind{OpRemoveItem}, kinds(ops))
	assert.Equal(t, "CH", ops[0].EntryID)
}

func feedShape(f Feed) [][]string {
	out := make([][]string, 0, len(f.Groups))
	for _, g := range f.Groups {
		ids := []string{g.Day.String()}
		for _, e := range g.Entries {
			ids = append(ids, e.EntryID)
		}
		out = append(out, ids)
	}
	return out
}

func TestLastVisible(t *testing.T) {
	a := entry("A", "2024-01-01 08:00", "a")
	b := entry("B", "2024-01-01 09:00", "")
	c := entry("C", "2024-01-01 11:00", "c")
	all := []*model.Entry{c, a, b}

	assert.Equal(t, "B", lastVisibleOf(all, model.FilterAll, at("2024-01-01 10:00")).EntryID)
	assert.Equal(t, "A", lastVisibleOf(all, model.FilterOnlyComments, at("2024-01-01 10:00")).EntryID)
	assert.Nil(t, lastVisibleOf(all, model.FilterAll, at("2023-12-31 10:00")))
}
