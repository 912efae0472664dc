package threading

import (
	"strconv"
	"strings"

	"threadmail/models"
)

// Export walks the forest into caller-facing nodes, ordered siblings first,
// children nested. Placeholder containers that survived pruning (top-level
// multi-child groups) are exported with Seq <= 0 and no identity; callers
// must treat them as pure grouping wrappers.
func (f *Forest) Export() []models.ExportNode {
	out := make([]models.ExportNode, 0, len(f.roots))
	for _, r := range f.roots {
		out = append(out, f.exportNode(r))
	}
	return out
}

func (f *Forest) exportNode(idx int) models.ExportNode {
	c := f.arena[idx]
	node := models.ExportNode{
		Folder: c.rec.Folder,
		Seq:    c.rec.SeqNum,
		UID:    c.rec.UID,
	}
	for k := c.child; k != none; k = f.arena[k].sibling {
		node.Children = append(node.Children, f.exportNode(k))
	}
	return node
}

// ThreadReferences renders the forest in the THREAD=REFERENCES response
// form: one parenthesized group per top-level thread, members listed
// depth-first and space-separated, placeholder containers contributing no
// token of their own. A flat mailbox renders as "(1)(2)(3)"; a root with
// replies as "(1 2 3)".
//
// A non-nil allowed set filters the output to the listed sequence numbers:
// filtered-out ancestors are spliced out while their descendants keep their
// positions. Groups left without members are dropped entirely.
func (f *Forest) ThreadReferences(allowed map[int64]bool) string {
	var sb strings.Builder
	for _, r := range f.roots {
		var tokens []string
		f.collectTokens(r, allowed, &tokens)
		if len(tokens) == 0 {
			continue
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(tokens, " "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (f *Forest) collectTokens(idx int, allowed map[int64]bool, tokens *[]string) {
	c := f.arena[idx]
	if seq := c.rec.SeqNum; seq > 0 && (allowed == nil || allowed[seq]) {
		*tokens = append(*tokens, strconv.FormatInt(seq, 10))
	}
	for k := c.child; k != none; k = f.arena[k].sibling {
		f.collectTokens(k, allowed, tokens)
	}
}
