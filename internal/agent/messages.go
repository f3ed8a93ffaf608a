package agent

// MessageMode controls how repeated log lines are stored.
type MessageMode uint8

const (
	// MessageAll keeps every line.
	MessageAll MessageMode = iota
	// MessageCompact drops a line identical to the newest one.
	MessageCompact
	// MessageUnique moves a repeated line to the front instead of duplicating it.
	MessageUnique
)

func (m MessageMode) String() string {
	switch m {
	case MessageAll:
		return "all"
	case MessageUnique:
		return "unique"
	default:
		return "compact"
	}
}

// ParseMessageMode accepts the names produced by String.
func ParseMessageMode(name string) (MessageMode, bool) {
	switch name {
	case "all":
		return MessageAll, true
	case "compact", "":
		return MessageCompact, true
	case "unique":
		return MessageUnique, true
	default:
		return MessageCompact, false
	}
}

// MessageLog keeps the newest messages first.
type MessageLog struct {
	lines []string
}

// Add records message under mode, keeping at most max lines (max <= 0 keeps none).
func (l *MessageLog) Add(message string, mode MessageMode, max int) {
	switch mode {
	case MessageCompact:
		if len(l.lines) > 0 && l.lines[0] == message {
			return
		}
	case MessageUnique:
		kept := l.lines[:0]
		for _, line := range l.lines {
			if line != message {
				kept = append(kept, line)
			}
		}
		l.lines = kept
	}
	l.lines = append(l.lines, "")
	copy(l.lines[1:], l.lines)
	l.lines[0] = message
	if max < 0 {
		max = 0
	}
	if len(l.lines) > max {
		l.lines = l.lines[:max]
	}
}

// Messages returns a copy, newest first.
func (l *MessageLog) Messages() []string {
	return append([]string(nil), l.lines...)
}

func (l *MessageLog) Len() int { return len(l.lines) }

func (l *MessageLog) Clear() { l.lines = nil }
