package threading

import "strings"

// BaseSubject returns the normalized form of a subject used for grouping
// sibling threads: lowercased, whitespace collapsed, leading "re:"/"fw:"/
// "fwd:" tokens and bracketed list tags removed. isResponse reports whether
// any reply or forward marker was stripped.
func BaseSubject(subject string) (base string, isResponse bool) {
	s := strings.ToLower(strings.TrimSpace(subject))
	s = strings.Join(strings.Fields(s), " ")

	for {
		before := s
		s = strings.TrimLeft(s, " \t")

		// Mailing list tag, e.g. "[users] welcome".
		if strings.HasPrefix(s, "[") {
			if i := strings.Index(s, "]"); i >= 0 {
				s = strings.TrimLeft(s[i+1:], " \t")
			}
		}

		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimLeft(s[len(prefix):], " \t")
				isResponse = true
				break
			}
		}

		if s == before {
			break
		}
	}
	return strings.TrimSpace(s), isResponse
}
