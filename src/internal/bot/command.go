package bot

import (
	"context"
	"strings"
)

// Command is a chat command a plugin registers with the gateway.
type Command struct {
	Name        string
	Description string
	Action      func(ctx context.Context, sess *Session) error
}

// ParseCommand splits content into a command name and its arguments when it
// starts with one of prefixes. An empty prefix list accepts bare names.
func ParseCommand(content string, prefixes []string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil, false
	}
	matched := len(prefixes) == 0
	for _, p := range prefixes {
		if rest, found := strings.CutPrefix(content, p); found && p != "" {
			content = rest
			matched = true
			break
		}
	}
	if !matched {
		return "", nil, false
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
