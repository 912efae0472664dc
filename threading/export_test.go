package threading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadmail/models"
)

func TestThreadReferencesFlat(t *testing.T) {
	f := thread(t,
		rec(1, "<a@x>", "one"),
		rec(2, "<b@x>", "two"),
		rec(3, "<c@x>", "three"),
	)
	assert.Equal(t, "(1)(2)(3)", f.ThreadReferences(nil))
}

func TestThreadReferencesWithChildren(t *testing.T) {
	f := thread(t,
		rec(1, "<a@x>", "hello"),
		rec(2, "<b@x>", "Re: hello", "<a@x>"),
		rec(3, "<c@x>", "Re: hello", "<a@x>"),
	)
	assert.Equal(t, "(1 2 3)", f.ThreadReferences(nil))
}

func TestThreadReferencesFilterSplicing(t *testing.T) {
	f := thread(t,
		rec(1, "<a@x>", "hello"),
		rec(2, "<b@x>", "Re: hello", "<a@x>"),
		rec(3, "<c@x>", "Re: hello", "<a@x>"),
	)
	// 2 is dropped, 3 keeps its position next to 1.
	assert.Equal(t, "(1 3)", f.ThreadReferences(map[int64]bool{1: true, 3: true}))
}

func TestThreadReferencesFilterDropsEmptyThreads(t *testing.T) {
	f := thread(t,
		rec(1, "<a@x>", "one"),
		rec(2, "<b@x>", "two"),
	)
	assert.Equal(t, "(2)", f.ThreadReferences(map[int64]bool{2: true}))
}

func TestThreadReferencesDummyGroupHasNoLeadingNumber(t *testing.T) {
	f := thread(t,
		rec(1, "<b@x>", "Re: hello", "<a@x>"),
		rec(2, "<c@x>", "Re: hello", "<a@x>"),
	)
	assert.Equal(t, "(1 2)", f.ThreadReferences(nil))
}

func TestExportCarriesIdentity(t *testing.T) {
	f := thread(t,
		rec(1, "<a@x>", "hello"),
		rec(2, "<b@x>", "Re: hello", "<a@x>"),
	)

	roots := f.Export()
	require.Len(t, roots, 1)
	assert.Equal(t, "INBOX", roots[0].Folder)
	assert.Equal(t, int64(1), roots[0].Seq)
	assert.Equal(t, int64(101), roots[0].UID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, int64(102), roots[0].Children[0].UID)
}

func TestExportGroupNodeHasNoIdentity(t *testing.T) {
	f := thread(t,
		rec(1, "<b@x>", "Re: hello", "<a@x>"),
		rec(2, "<c@x>", "Re: hello", "<a@x>"),
	)

	roots := f.Export()
	require.Len(t, roots, 1)
	group := roots[0]
	assert.LessOrEqual(t, group.Seq, int64(0))
	assert.Empty(t, group.Folder)
	assert.Zero(t, group.UID)
	assert.True(t, models.HeaderRecord{SeqNum: group.Seq}.IsPlaceholder())
}
