package dataset

// NormalizeName maps a raw column name onto the identifier form used by the
// network's node labels. Rules:
//
//   - every character outside [0-9A-Za-z_] becomes '.'
//   - a name whose first character is not a letter is prefixed with 'X'
//
// The function is idempotent: normalizing an already-normalized name
// returns it unchanged.
func NormalizeName(name string) string {
	if name == "" {
		return "X"
	}
	out := make([]byte, 0, len(name)+1)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
			out = append(out, c)
		default:
			out = append(out, '.')
		}
	}
	if !isLetter(out[0]) {
		out = append([]byte{'X'}, out...)
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
