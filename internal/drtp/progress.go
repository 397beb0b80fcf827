package drtp

// Reporter receives best-effort progress notifications from a Sender or
// Receiver. Implementations must not block: a slow or absent reporter
// must never slow down the transfer. The internal/monitor package is
// the only shipped implementation; nil is the default (no reporting).
type Reporter interface {
	Report(event string, seq, total int)
}

func report(r Reporter, event string, seq, total int) {
	if r == nil {
		return
	}
	r.Report(event, seq, total)
}
