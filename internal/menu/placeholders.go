package menu

import "strings"

// Placeholders expands %name% tokens for an observer.
type Placeholders interface {
	Resolve(o Observer, s string) string
}

// HostPlaceholders knows %observer_name%, %observer_id%, %world% and
// whatever variables the host reports for the observer. Unknown tokens are
// left as they are.
type HostPlaceholders struct{}

func (HostPlaceholders) Resolve(o Observer, s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			b.WriteString(s)
			break
		}
		j := strings.IndexByte(s[i+1:], '%')
		if j < 0 {
			b.WriteString(s)
			break
		}
		key := s[i+1 : i+1+j]
		b.WriteString(s[:i])
		if v, ok := lookup(o, key); ok {
			b.WriteString(v)
			s = s[i+j+2:]
			continue
		}
		// Keep the opening % and rescan from the closing one.
		b.WriteString(s[i : i+1+j])
		s = s[i+1+j:]
	}
	return b.String()
}

func lookup(o Observer, key string) (string, bool) {
	switch strings.ToLower(key) {
	case "observer_name", "player_name":
		return o.Name(), true
	case "observer_id":
		return o.ID(), true
	case "world":
		return o.Location().World, true
	}
	if key == "" {
		return "", false
	}
	return o.Variable(key)
}
