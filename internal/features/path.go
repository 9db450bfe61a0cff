package features

import (
	"strings"
	"unicode/utf8"
)

const suspiciousChars = `<>'";|&$`

// PathStats holds structural counts for a request path.
type PathStats struct {
	Length          int  `json:"length"`
	NumSlashes      int  `json:"num_slashes"`
	NumDots         int  `json:"num_dots"`
	NumDashes       int  `json:"num_dashes"`
	NumUnderscores  int  `json:"num_underscores"`
	HasQuery        bool `json:"has_query"`
	HasFragment     bool `json:"has_fragment"`
	NumParams       int  `json:"num_params"`
	SuspiciousChars bool `json:"suspicious_chars"`
}

// AnalyzePath computes structural statistics for path. A scheme and host
// prefix, if present, is stripped before counting. An empty path yields nil,
// which distinguishes "no path" from the root path "/".
func AnalyzePath(path string) *PathStats {
	if path == "" {
		return nil
	}
	path = stripSchemeAndHost(path)

	st := &PathStats{
		Length:          utf8.RuneCountInString(path),
		NumSlashes:      strings.Count(path, "/"),
		NumDots:         strings.Count(path, "."),
		NumDashes:       strings.Count(path, "-"),
		NumUnderscores:  strings.Count(path, "_"),
		HasQuery:        strings.Contains(path, "?"),
		HasFragment:     strings.Contains(path, "#"),
		SuspiciousChars: strings.ContainsAny(path, suspiciousChars),
	}
	if st.HasQuery {
		query := path[strings.IndexByte(path, '?')+1:]
		if i := strings.IndexByte(query, '#'); i >= 0 {
			query = query[:i]
		}
		st.NumParams = strings.Count(query, "&") + 1
	}
	return st
}

func stripSchemeAndHost(s string) string {
	i := strings.Index(s, "://")
	if i < 0 {
		return s
	}
	rest := s[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[j:]
	}
	return "/"
}
