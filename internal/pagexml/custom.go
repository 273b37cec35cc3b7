package pagexml

import "strings"

// The PAGE-XML custom attribute smuggles semantic annotations into a
// free-form string using a small key:value convention, e.g.
//
//	readingOrder {index:0;} structure {type:marginalia;}
//
// A block is a keyword followed by a braced list of key:value pairs. The
// value of a pair runs until the next ';' or '}'; whitespace around keys
// and values is insignificant; a trailing semicolon before '}' is
// optional. Malformed input never errors: absent or unparsable annotations
// are the normal "use fallback" path, not a failure.

// CustomBlock parses the first block with the given keyword out of a
// custom attribute string and returns its key:value pairs. The second
// result is false when no such block exists.
func CustomBlock(custom, keyword string) (map[string]string, bool) {
	rest := custom
	for {
		i := strings.Index(rest, keyword)
		if i < 0 {
			return nil, false
		}
		atWordStart := i == 0 || !isWordByte(rest[i-1])
		rest = rest[i+len(keyword):]
		if !atWordStart {
			// Keyword occurred inside some longer token; keep scanning.
			continue
		}
		trimmed := strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(trimmed, "{") {
			continue
		}
		return parsePairs(trimmed[1:]), true
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// parsePairs scans key:value pairs up to the closing brace (or the end of
// input when the brace is missing). Fragments without a colon are ignored.
func parsePairs(s string) map[string]string {
	if end := strings.IndexByte(s, '}'); end >= 0 {
		s = s[:end]
	}
	pairs := make(map[string]string)
	for _, frag := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(frag, ":")
		if !ok {
			continue
		}
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		pairs[key] = strings.TrimSpace(v)
	}
	return pairs
}

// StructureType extracts the semantic region type from a custom attribute
// string. It prefers the type key of a structure block; when no structure
// block exists it falls back to the first bare "type:" occurrence anywhere
// in the string, a looser convention some sibling tools emit. The second
// result is false when no type could be determined; the caller supplies
// the fallback in that case.
func StructureType(custom string) (string, bool) {
	if pairs, ok := CustomBlock(custom, "structure"); ok {
		if v, exists := pairs["type"]; exists && v != "" {
			return v, true
		}
	}

	i := strings.Index(custom, "type:")
	if i < 0 {
		return "", false
	}
	v := custom[i+len("type:"):]
	if end := strings.IndexAny(v, ";}"); end >= 0 {
		v = v[:end]
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
