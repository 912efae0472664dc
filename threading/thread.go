package threading

import (
	"github.com/google/uuid"

	"threadmail/models"
)

// none marks an absent arena link.
const none = -1

// container is one node of the arena. parent and sibling are non-owning
// links; child is the sole owning edge. A dummy container has no real
// message behind it and exists only to hold children.
type container struct {
	rec     models.HeaderRecord
	dummy   bool
	parent  int
	child   int // first child
	sibling int // next sibling
}

// Forest is the result of a threading run: an arena of containers plus the
// root containers in first-registered order. The structure is guaranteed to
// be acyclic even when the input References chains were not.
type Forest struct {
	arena []container
	roots []int
}

// Options control a threading run.
type Options struct {
	// GatherSubjects pulls root-level siblings that share a base subject
	// together under one synthetic parent.
	GatherSubjects bool
}

// Builder builds a thread forest from flat header records using their
// References/In-Reply-To chains. A Builder is single-use: create one per
// threading run.
type Builder struct {
	opts  Options
	arena []container
	ids   map[string]int
	order []int // arena indexes in first-registered order
}

// NewBuilder creates a thread builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{
		opts: opts,
		ids:  make(map[string]int),
	}
}

// Thread builds the forest for the given records. It is deterministic for a
// given input order and never fails: malformed input (duplicate ids, cyclic
// references, missing identity) is resolved, not reported.
func (b *Builder) Thread(records []models.HeaderRecord) *Forest {
	nodes := make([]int, len(records))

	// Index pass. Register every record under its canonical Message-ID, or
	// under a synthetic unique key when the id is absent. A second record
	// with an already-registered id is a duplicate: it gets no container of
	// its own, but its references still count in the link pass.
	for i, rec := range records {
		key := CanonicalID(rec.MessageID)
		if key == "" {
			key = "noid-" + uuid.NewString()
		}
		if _, ok := b.ids[key]; ok {
			nodes[i] = none
			continue
		}
		nodes[i] = b.register(key, rec, false)
	}

	// Link pass. Walk the reference chain oldest-first, creating placeholder
	// containers for unseen ids, linking each entry as parent of the next
	// and finally as parent of the record itself. Links that would make a
	// container its own ancestor are skipped.
	for i, rec := range records {
		refs := ReferencedIDs(rec.References, rec.InReplyTo)
		prev := none
		for _, ref := range refs {
			idx, ok := b.ids[ref]
			if !ok {
				idx = b.register(ref, models.HeaderRecord{}, true)
			}
			if prev != none {
				b.link(prev, idx)
			}
			prev = idx
		}
		if nodes[i] != none && prev != none {
			b.link(prev, nodes[i])
		}
	}

	// Root collection, in first-registered order.
	var roots []int
	for _, idx := range b.order {
		if b.arena[idx].parent == none {
			roots = append(roots, idx)
		}
	}

	roots = b.prune(roots, true)
	if b.opts.GatherSubjects {
		roots = b.gatherSubjects(roots)
	}
	b.install(none, roots)

	return &Forest{arena: b.arena, roots: roots}
}

// register adds a container to the arena under key.
func (b *Builder) register(key string, rec models.HeaderRecord, dummy bool) int {
	idx := len(b.arena)
	b.arena = append(b.arena, container{
		rec:     rec,
		dummy:   dummy,
		parent:  none,
		child:   none,
		sibling: none,
	})
	b.ids[key] = idx
	b.order = append(b.order, idx)
	return idx
}

// link makes child a child of parent, unless the child already has a parent
// or the link would create a cycle. Rejected links leave the child rootless.
func (b *Builder) link(parent, child int) {
	if parent == child || b.arena[child].parent != none || b.isAncestor(child, parent) {
		return
	}
	b.arena[child].parent = parent
	if b.arena[parent].child == none {
		b.arena[parent].child = child
		return
	}
	last := b.arena[parent].child
	for b.arena[last].sibling != none {
		last = b.arena[last].sibling
	}
	b.arena[last].sibling = child
}

// isAncestor reports whether node is an ancestor of idx (or idx itself).
func (b *Builder) isAncestor(node, idx int) bool {
	for idx != none {
		if idx == node {
			return true
		}
		idx = b.arena[idx].parent
	}
	return false
}

// childList returns the children of idx in sibling order.
func (b *Builder) childList(idx int) []int {
	var kids []int
	for k := b.arena[idx].child; k != none; k = b.arena[k].sibling {
		kids = append(kids, k)
	}
	return kids
}

// install rewrites parent's child chain to exactly kids, in order. A parent
// of none installs kids as roots.
func (b *Builder) install(parent int, kids []int) {
	if parent != none {
		b.arena[parent].child = none
	}
	prev := none
	for _, k := range kids {
		b.arena[k].parent = parent
		b.arena[k].sibling = none
		if prev == none {
			if parent != none {
				b.arena[parent].child = k
			}
		} else {
			b.arena[prev].sibling = k
		}
		prev = k
	}
}

// prune removes childless placeholder containers and splices single-child
// ones. Placeholder groups with two or more children survive only at the
// top level, where they act as synthetic grouping containers; nested groups
// are spliced regardless of child count.
func (b *Builder) prune(kids []int, atRoot bool) []int {
	var out []int
	for _, k := range kids {
		pruned := b.prune(b.childList(k), false)
		if b.arena[k].dummy {
			if len(pruned) == 0 {
				continue
			}
			if !atRoot || len(pruned) == 1 {
				out = append(out, pruned...)
				continue
			}
		}
		b.install(k, pruned)
		out = append(out, k)
	}
	return out
}

// gatherSubjects pulls top-level siblings sharing a base subject together
// under the earliest such sibling's position, as one synthetic parent. The
// pass only looks at root-level siblings, not nested children.
func (b *Builder) gatherSubjects(roots []int) []int {
	groups := make(map[string]int) // base subject -> gathering container
	var out []int
	for _, r := range roots {
		base, _ := BaseSubject(b.subjectOf(r))
		if base == "" {
			out = append(out, r)
			continue
		}
		group, ok := groups[base]
		if !ok {
			groups[base] = r
			out = append(out, r)
			continue
		}
		if !b.arena[group].dummy {
			// Second root with this subject: replace the first with a
			// synthetic parent holding both.
			parent := len(b.arena)
			b.arena = append(b.arena, container{
				parent:  none,
				child:   none,
				sibling: none,
				dummy:   true,
			})
			for i, o := range out {
				if o == group {
					out[i] = parent
					break
				}
			}
			b.install(parent, []int{group})
			groups[base] = parent
			group = parent
		}
		b.install(group, append(b.childList(group), r))
	}
	return out
}

// subjectOf returns the subject to group idx under: its own for a real
// message, the first child's for a placeholder group.
func (b *Builder) subjectOf(idx int) string {
	if !b.arena[idx].dummy {
		return b.arena[idx].rec.Subject
	}
	if k := b.arena[idx].child; k != none {
		return b.subjectOf(k)
	}
	return ""
}

// Roots returns the number of top-level threads in the forest.
func (f *Forest) Roots() int {
	return len(f.roots)
}
