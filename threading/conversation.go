package threading

import (
	"threadmail/models"
	"threadmail/utils"
)

// Conversation is a flat group of messages connected by shared Message-ID or
// Reference values, independent of parent/child ordering. The first message
// appended stays first and acts as the representative when a tree root is
// needed downstream.
type Conversation struct {
	Messages []models.HeaderRecord `json:"messages"`

	ids  []string
	refs []string
	seen map[string]bool
	main bool
	next *Conversation // live representative after being absorbed
}

// NewConversation creates a conversation holding a single message.
func NewConversation(rec models.HeaderRecord) *Conversation {
	c := &Conversation{seen: make(map[string]bool), main: true}
	c.Add(rec)
	return c
}

// IsMain reports whether the conversation still stands on its own. It turns
// false once the conversation has been joined into another during folding.
func (c *Conversation) IsMain() bool {
	return c.main
}

// Add appends a message and registers its id and reference values.
func (c *Conversation) Add(rec models.HeaderRecord) {
	c.Messages = append(c.Messages, rec)
	if id := CanonicalID(rec.MessageID); id != "" && !c.seen[id] {
		c.seen[id] = true
		c.ids = append(c.ids, id)
	}
	for _, ref := range ReferencedIDs(rec.References, rec.InReplyTo) {
		if !c.seen[ref] {
			c.seen[ref] = true
			c.refs = append(c.refs, ref)
		}
	}
}

// join absorbs other into c. The absorbed conversation loses its main flag,
// keeps no messages of its own, and forwards to c so stale lookup entries
// still resolve to the live conversation.
func (c *Conversation) join(other *Conversation) {
	c.Messages = append(c.Messages, other.Messages...)
	for _, id := range other.ids {
		if !c.seen[id] {
			c.seen[id] = true
			c.ids = append(c.ids, id)
		}
	}
	for _, ref := range other.refs {
		if !c.seen[ref] {
			c.seen[ref] = true
			c.refs = append(c.refs, ref)
		}
	}
	other.main = false
	other.Messages = nil
	other.next = c
}

// resolve chases forward pointers to the conversation's live representative.
func resolve(c *Conversation) *Conversation {
	for c.next != nil {
		c = c.next
	}
	return c
}

// keys returns the ids and references of the conversation, ids first, in
// insertion order.
func (c *Conversation) keys() []string {
	out := make([]string, 0, len(c.ids)+len(c.refs))
	out = append(out, c.ids...)
	return append(out, c.refs...)
}

// Fold merges conversations into maximal connected components: whenever two
// conversations share a Message-ID or Reference value they are joined, the
// earlier one absorbing the later. The surviving main conversations are
// returned in their original order. Folding an already-folded list is a
// no-op, and connectivity of the result does not depend on input order.
func Fold(conversations []*Conversation) []*Conversation {
	lookup := make(map[string]*Conversation)
	for _, conv := range conversations {
		cur := resolve(conv)
		for _, key := range cur.keys() {
			owner, inserted := insertOrGet(lookup, key, cur)
			if inserted {
				continue
			}
			// The map entry may predate a join; chase it to the live
			// conversation before comparing or merging.
			owner = resolve(owner)
			if owner == cur {
				continue
			}
			owner.join(cur)
			lookup[key] = owner
			cur = owner
		}
	}

	var out []*Conversation
	for _, conv := range conversations {
		if conv.IsMain() {
			out = append(out, conv)
		}
	}
	return out
}

// FoldAndMerge folds conversations and then attaches each extra message to
// the surviving conversation matching its Message-ID or one of its
// References. A message matching two distinct conversations is attached to
// the first match only; the ambiguity is logged, never raised, and the
// conversations themselves are not re-merged. Unmatched extras are dropped.
func FoldAndMerge(conversations []*Conversation, extra []models.HeaderRecord) []*Conversation {
	out := Fold(conversations)

	lookup := make(map[string]*Conversation)
	for _, conv := range out {
		for _, key := range conv.keys() {
			insertOrGet(lookup, key, conv)
		}
	}

	for _, rec := range extra {
		keys := ReferencedIDs(rec.References, rec.InReplyTo)
		if id := CanonicalID(rec.MessageID); id != "" {
			keys = append([]string{id}, keys...)
		}
		var match *Conversation
		for _, key := range keys {
			conv, ok := lookup[key]
			if !ok {
				continue
			}
			if match == nil {
				match = conv
			} else if conv != match {
				utils.Log.Debug("folding conflict: message %q matches two conversations, keeping first", rec.MessageID)
			}
		}
		if match != nil {
			match.Add(rec)
		}
	}
	return out
}

// insertOrGet claims key for conv if unclaimed, or returns the existing
// owner. The second return value reports whether the insert happened.
func insertOrGet(lookup map[string]*Conversation, key string, conv *Conversation) (*Conversation, bool) {
	if owner, ok := lookup[key]; ok {
		return owner, false
	}
	lookup[key] = conv
	return conv, true
}
