package agent

// PendingApproval is one queued tool call awaiting user confirmation. CallID
// is the backend-assigned identity; Args are the raw arguments as received,
// shown to the user and re-validated on approval.
type PendingApproval struct {
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

// approvalGate holds the FIFO queue of calls awaiting confirmation. Approve
// and reject act on the head only; the conversation's mutex serializes all
// access, so the gate itself carries no locking.
type approvalGate struct {
	queue []PendingApproval
}

func (g *approvalGate) enqueue(items ...PendingApproval) {
	g.queue = append(g.queue, items...)
}

// head returns the front of the queue without removing it.
func (g *approvalGate) head() (PendingApproval, bool) {
	if len(g.queue) == 0 {
		return PendingApproval{}, false
	}
	return g.queue[0], true
}

func (g *approvalGate) pop() {
	if len(g.queue) > 0 {
		g.queue = g.queue[1:]
	}
}

func (g *approvalGate) empty() bool {
	return len(g.queue) == 0
}

func (g *approvalGate) clear() {
	g.queue = nil
}
