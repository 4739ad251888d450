package domain

import "strings"

// Address is a federated vault identifier of the form name@domain.
type Address struct {
	Name   string
	Domain string
}

func (a Address) String() string { return a.Name + "@" + a.Domain }

// ParseAddress splits and validates a name@domain address. Both halves are
// lowercased; the domain must contain at least one dot or be "localhost"
// (with an optional port for local federation testing).
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return Address{}, BadRequest("malformed address %q: expected name@domain", s)
	}
	name, dom := s[:at], s[at+1:]
	if strings.ContainsAny(name, " \t@/") {
		return Address{}, BadRequest("malformed address %q: invalid name", s)
	}
	host := dom
	if i := strings.IndexByte(dom, ':'); i >= 0 {
		host = dom[:i]
	}
	if !strings.Contains(host, ".") && host != "localhost" {
		return Address{}, BadRequest("malformed address %q: invalid domain", s)
	}
	return Address{Name: name, Domain: dom}, nil
}
