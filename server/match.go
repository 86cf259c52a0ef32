package server

// Match reports whether s matches pattern using the DA browse filter
// syntax: ? matches one character, * any run of characters, # one digit,
// [list] one character from list and [!list] one character not in it.
// Lists accept ranges such as [a-z]. An empty pattern matches everything.
func Match(pattern, s string) bool {
	if pattern == "" {
		return true
	}
	return match([]rune(pattern), []rune(s))
}

func match(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 0 && p[0] == '*' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if match(p, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
		case '#':
			if len(s) == 0 || s[0] < '0' || s[0] > '9' {
				return false
			}
		case '[':
			if len(s) == 0 {
				return false
			}
			ok, rest, valid := matchList(p[1:], s[0])
			if !valid {
				// An unterminated list is a literal '['.
				if s[0] != '[' {
					return false
				}
				break
			}
			if !ok {
				return false
			}
			p, s = rest, s[1:]
			continue
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
		}
		p, s = p[1:], s[1:]
	}
	return len(s) == 0
}

// matchList matches c against the list that starts after '['. It returns
// the pattern after the closing ']' and whether the list was terminated.
func matchList(p []rune, c rune) (ok bool, rest []rune, valid bool) {
	negate := len(p) > 0 && p[0] == '!'
	if negate {
		p = p[1:]
	}
	for i := 0; i < len(p); i++ {
		if p[i] == ']' && i > 0 {
			return ok != negate, p[i+1:], true
		}
		if i+2 < len(p) && p[i+1] == '-' && p[i+2] != ']' {
			if c >= p[i] && c <= p[i+2] {
				ok = true
			}
			i += 2
			continue
		}
		if p[i] == c {
			ok = true
		}
	}
	return false, nil, false
}
