package threading

import (
	"strings"
	"unicode"
)

// CanonicalID normalizes a message-id for thread matching: angle brackets
// removed, lowercased, and bare whitespace stripped. Some MUAs rewrap the
// References header in the middle of a message-id and others recombine them,
// so whitespace inside an id carries no meaning.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	id = strings.ToLower(id)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, id)
}

// ReferencedIDs returns the message-ids referenced by a message, in order,
// canonicalized for thread matching. References is the canonical ancestor
// chain; In-Reply-To is only consulted when References yields nothing.
// Truncated entries (a "<" before the closing ">") are skipped.
func ReferencedIDs(references []string, inReplyTo string) []string {
	var refids []string

	// Parse zero or one reference, returning the rest for the next attempt.
	parse1 := func(refs string) string {
		refs = strings.TrimLeft(refs, " \t\r\n")
		if !strings.HasPrefix(refs, "<") {
			// Skip to the next space or > to make progress.
			i := strings.IndexAny(refs, " >")
			if i < 0 {
				return ""
			}
			return refs[i+1:]
		}
		refs = refs[1:]
		// Look for the ending > or the next <. A < first means this entry
		// was truncated and we ignore it.
		i := strings.IndexAny(refs, "<>")
		if i < 0 {
			return ""
		}
		if refs[i] == '<' {
			return refs[i:]
		}
		ref := CanonicalID(refs[:i])
		refs = refs[i+1:]
		if ref != "" {
			refids = append(refids, ref)
		}
		return refs
	}

	for _, refs := range references {
		for refs != "" {
			refs = parse1(refs)
		}
	}
	if len(refids) == 0 && inReplyTo != "" {
		s := inReplyTo
		for s != "" && len(refids) == 0 {
			s = parse1(s)
		}
	}
	return refids
}
