package models

// Mutation is every state change produced by one tick. The store applies
// it all-or-nothing.
type Mutation struct {
	UserID string

	// Session replaces the stored session when set.
	Session *BotSession
	// Open inserts a new open position.
	Open *OpenPosition
	// Close removes the open position with Close.ID and appends the history row.
	Close *ClosedPosition
	// IncrementTrades bumps trades_opened_this_session by one.
	IncrementTrades bool
	// Signal is the filter audit row for the tick.
	Signal *SignalRecord
	// Idempotency records the encoded response under its key. The commit
	// fails with store.ErrDuplicateRequest when the key is already taken.
	Idempotency *IdempotencyRecord
}

// IdempotencyRecord is the response recorded for (Op, Key).
type IdempotencyRecord struct {
	Op      string
	Key     string
	Payload []byte
}

// Empty reports whether there is nothing to persist.
func (m *Mutation) Empty() bool {
	return m.Session == nil && m.Open == nil && m.Close == nil && !m.IncrementTrades &&
		m.Signal == nil && m.Idempotency == nil
}
