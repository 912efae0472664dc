package threading

import (
	"strconv"

	sortthread "github.com/emersion/go-imap-sortthread"

	"threadmail/models"
)

// FromServerThreads normalizes the result of a server-side THREAD command
// into the same forest shape the built-in builder produces. Thread ids are
// UIDs; records supplies the fetched headers keyed by UID. Ids the server
// reports outside the fetched window become placeholder containers and go
// through the usual pruning rules, so the caller sees one forest contract
// regardless of which threader ran.
func FromServerThreads(threads []*sortthread.Thread, records map[int64]models.HeaderRecord) *Forest {
	b := NewBuilder(Options{})

	var add func(t *sortthread.Thread, parent int)
	add = func(t *sortthread.Thread, parent int) {
		uid := int64(t.Id)
		rec, ok := records[uid]
		idx := b.register("uid-"+strconv.FormatInt(uid, 10), rec, !ok)
		if parent != none {
			b.link(parent, idx)
		}
		for _, child := range t.Children {
			add(child, idx)
		}
	}
	for _, t := range threads {
		if t != nil {
			add(t, none)
		}
	}

	var roots []int
	for _, idx := range b.order {
		if b.arena[idx].parent == none {
			roots = append(roots, idx)
		}
	}
	roots = b.prune(roots, true)
	b.install(none, roots)
	return &Forest{arena: b.arena, roots: roots}
}
