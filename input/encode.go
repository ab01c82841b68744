package input

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes s the way ECMAScript's
// encodeURIComponent does: letters, digits and - _ . ! ~ * ' ( ) are kept,
// every other byte of the UTF-8 encoding becomes %XX.
func EncodeURIComponent(s string) string {
	escapes := 0
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i]) {
			escapes++
		}
	}
	if escapes == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*escapes)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !shouldEscape(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func shouldEscape(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return false
	}
	return true
}
