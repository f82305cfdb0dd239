//go:build !linux

package detect

// JournalOption configures a Journal.
type JournalOption func(*struct{})

// WithExecutor is accepted for API parity and ignored.
func WithExecutor(Executor) JournalOption { return nil }

// NewJournal returns nil: there is no system journal on this platform and
// callers skip the log fallback.
func NewJournal(string, string, ...JournalOption) LogSource { return nil }
