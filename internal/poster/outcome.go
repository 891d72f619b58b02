package poster

import (
	"fmt"

	"channelposter/internal/catalog"
	"channelposter/internal/storage"
	"channelposter/internal/transport"
)

// Kind tags how a run ended.
type Kind int

const (
	OK Kind = iota
	// ConfigFailed covers settings, a missing or malformed catalog and
	// selection errors. Nothing was sent.
	ConfigFailed
	// SendFailed means the Bot API call failed. Nothing was recorded.
	SendFailed
	// RecordFailed means the post went out but the log entry was not written.
	RecordFailed
	// PartiallySent means a split message failed after its first part was
	// delivered. The entry is recorded so a retry does not double-post.
	PartiallySent
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case ConfigFailed:
		return "config_failed"
	case SendFailed:
		return "send_failed"
	case RecordFailed:
		return "record_failed"
	case PartiallySent:
		return "partially_sent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ExitCode maps the kind to the process exit status.
func (k Kind) ExitCode() int {
	switch k {
	case OK:
		return 0
	case ConfigFailed:
		return 2
	case SendFailed, PartiallySent:
		return 3
	case RecordFailed:
		return 4
	default:
		return 1
	}
}

// Outcome is the result of one run.
type Outcome struct {
	Kind      Kind
	Selection catalog.Selection
	Message   string
	Ref       transport.MessageRef
	Entry     storage.Entry
	Err       error
}

// Failed builds a failed outcome.
func Failed(kind Kind, err error) Outcome {
	return Outcome{Kind: kind, Err: err}
}

func (o Outcome) OK() bool { return o.Kind == OK }

func (o Outcome) ExitCode() int { return o.Kind.ExitCode() }

// Error describes a failed outcome; it is empty for OK.
func (o Outcome) Error() string {
	if o.Kind == OK {
		return ""
	}
	if o.Err == nil {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Err.Error()
}
