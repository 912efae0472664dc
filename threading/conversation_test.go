package threading

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadmail/models"
)

func conv(recs ...models.HeaderRecord) *Conversation {
	c := NewConversation(recs[0])
	for _, r := range recs[1:] {
		c.Add(r)
	}
	return c
}

// membership renders the folded result as sorted member-id groups so tests
// can compare connectivity independent of order.
func membership(convs []*Conversation) []string {
	var groups []string
	for _, c := range convs {
		var ids []string
		for _, m := range c.Messages {
			ids = append(ids, CanonicalID(m.MessageID))
		}
		sort.Strings(ids)
		groups = append(groups, strings.Join(ids, ","))
	}
	sort.Strings(groups)
	return groups
}

func TestFoldDisjoint(t *testing.T) {
	folded := Fold([]*Conversation{
		conv(rec(1, "<a@x>", "one")),
		conv(rec(2, "<b@x>", "two")),
	})
	assert.Equal(t, []string{"a@x", "b@x"}, membership(folded))
}

func TestFoldSharedReference(t *testing.T) {
	folded := Fold([]*Conversation{
		conv(rec(1, "<a@x>", "one", "<root@x>")),
		conv(rec(2, "<b@x>", "two", "<root@x>")),
	})

	require.Len(t, folded, 1)
	assert.True(t, folded[0].IsMain())
	// The first conversation absorbs, its first message stays first.
	assert.Equal(t, "<a@x>", folded[0].Messages[0].MessageID)
	assert.Equal(t, []string{"a@x,b@x"}, membership(folded))
}

func TestFoldReplyToMessage(t *testing.T) {
	// A reply referencing another conversation's Message-ID joins it.
	folded := Fold([]*Conversation{
		conv(rec(1, "<a@x>", "hello")),
		conv(rec(2, "<b@x>", "Re: hello", "<a@x>")),
	})
	assert.Equal(t, []string{"a@x,b@x"}, membership(folded))
}

func TestFoldTransitive(t *testing.T) {
	folded := Fold([]*Conversation{
		conv(rec(1, "<a@x>", "one", "<k1@x>")),
		conv(rec(2, "<b@x>", "two", "<k1@x>", "<k2@x>")),
		conv(rec(3, "<c@x>", "three", "<k2@x>")),
	})
	assert.Equal(t, []string{"a@x,b@x,c@x"}, membership(folded))
}

func TestFoldIdempotent(t *testing.T) {
	convs := []*Conversation{
		conv(rec(1, "<a@x>", "one", "<k@x>")),
		conv(rec(2, "<b@x>", "two", "<k@x>")),
		conv(rec(3, "<c@x>", "three")),
	}
	once := Fold(convs)
	twice := Fold(once)

	assert.Equal(t, membership(once), membership(twice))
	assert.Len(t, twice, len(once))
}

func TestFoldOrderIndependentConnectivity(t *testing.T) {
	build := func() (a, b, c *Conversation) {
		a = conv(rec(1, "<a@x>", "one", "<k@x>"))
		b = conv(rec(2, "<b@x>", "two", "<k@x>"))
		c = conv(rec(3, "<c@x>", "three"))
		return
	}

	a1, b1, c1 := build()
	a2, b2, c2 := build()

	forward := Fold([]*Conversation{a1, b1, c1})
	shuffled := Fold([]*Conversation{c2, a2, b2})

	assert.Equal(t, membership(forward), membership(shuffled))
}

func TestFoldJoinAfterAbsorption(t *testing.T) {
	// C bridges A and B, absorbing one of them; D then matches a key that
	// still points at the absorbed conversation. D's messages must end up in
	// the surviving conversation, not in a dead one.
	build := func() []*Conversation {
		return []*Conversation{
			conv(rec(1, "<a@x>", "one")),
			conv(rec(2, "<b@x>", "two")),
			conv(rec(3, "<c@x>", "three", "<a@x>", "<b@x>")),
			conv(rec(4, "<d@x>", "four", "<a@x>")),
		}
	}

	folded := Fold(build())
	require.Len(t, folded, 1)
	assert.Equal(t, []string{"a@x,b@x,c@x,d@x"}, membership(folded))

	// Same connectivity regardless of which conversation arrives first.
	in := build()
	reordered := Fold([]*Conversation{in[3], in[0], in[1], in[2]})
	assert.Equal(t, membership(folded), membership(reordered))
}

func TestFoldAndMergeAttachesExtra(t *testing.T) {
	folded := FoldAndMerge(
		[]*Conversation{
			conv(rec(1, "<a@x>", "one")),
			conv(rec(2, "<b@x>", "two")),
		},
		[]models.HeaderRecord{rec(3, "<c@x>", "Re: one", "<a@x>")},
	)

	require.Len(t, folded, 2)
	assert.Equal(t, []string{"a@x,c@x", "b@x"}, membership(folded))
}

func TestFoldAndMergeUnmatchedExtraDropped(t *testing.T) {
	folded := FoldAndMerge(
		[]*Conversation{conv(rec(1, "<a@x>", "one"))},
		[]models.HeaderRecord{rec(2, "<z@x>", "unrelated", "<nowhere@x>")},
	)

	require.Len(t, folded, 1)
	assert.Equal(t, []string{"a@x"}, membership(folded))
}

func TestFoldAndMergeAmbiguousKeepsFirstMatch(t *testing.T) {
	// The extra matches both surviving conversations; it attaches to the
	// first and the conversations are not re-merged.
	folded := FoldAndMerge(
		[]*Conversation{
			conv(rec(1, "<a@x>", "one")),
			conv(rec(2, "<b@x>", "two")),
		},
		[]models.HeaderRecord{rec(3, "<c@x>", "both", "<a@x>", "<b@x>")},
	)

	require.Len(t, folded, 2)
	assert.Equal(t, []string{"a@x,c@x", "b@x"}, membership(folded))
}
