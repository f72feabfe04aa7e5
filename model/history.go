package model

// History is the ordered message sequence of one conversation.
type History []Message

// Clone returns a deep copy so callers never share backing arrays with a cache.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, m := range h {
		out[i] = m.clone()
	}
	return out
}

// Append returns a new History with msgs added, leaving h untouched.
func (h History) Append(msgs ...Message) History {
	out := make(History, 0, len(h)+len(msgs))
	out = append(out, h...)
	return append(out, msgs...)
}

// LastAssistant returns the content of the last assistant message, if any.
func (h History) LastAssistant() (string, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == RoleAssistant {
			return h[i].Content, true
		}
	}
	return "", false
}

// FilterHistory strips tool-invocation and tool-result records, keeping user
// and assistant turns in their original order. It never fails and
// FilterHistory(FilterHistory(h)) equals FilterHistory(h).
func FilterHistory(h History) History {
	out := make(History, 0, len(h))
	for _, m := range h {
		switch m.Role {
		case RoleUser, RoleAssistant:
			out = append(out, m.clone())
		}
	}
	return out
}
