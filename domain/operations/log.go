package operations

// Log is an append-only queue of pending operations with removal at the tail
// (undo) and a bulk drain (save). It is not safe for concurrent use.
type Log struct {
	ops  []Operation
	next uint64
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append stamps the next sequence number onto op and stores it
func (l *Log) Append(op Operation) Operation {
	l.next++
	op.Seq = l.next
	l.ops = append(l.ops, op)
	return op
}

// Flush returns every pending operation and empties the log
func (l *Log) Flush() []Operation {
	ops := l.ops
	l.ops = nil
	return ops
}

// DiscardThrough drops every operation with a sequence number up to and
// including seq, keeping anything appended after it.
func (l *Log) DiscardThrough(seq uint64) int {
	i := 0
	for i < len(l.ops) && l.ops[i].Seq <= seq {
		i++
	}
	if i == 0 {
		return 0
	}
	l.ops = append([]Operation(nil), l.ops[i:]...)
	return i
}

// PopLast removes and returns the most recent operation
func (l *Log) PopLast() (Operation, bool) {
	if len(l.ops) == 0 {
		return Operation{}, false
	}
	last := l.ops[len(l.ops)-1]
	l.ops = l.ops[:len(l.ops)-1]
	return last, true
}

// Tail returns the last n operations, oldest first
func (l *Log) Tail(n int) []Operation {
	if n <= 0 || n > len(l.ops) {
		return nil
	}
	out := make([]Operation, n)
	copy(out, l.ops[len(l.ops)-n:])
	return out
}

// Len returns the number of pending operations
func (l *Log) Len() int {
	return len(l.ops)
}

// IsEmpty reports whether nothing is pending
func (l *Log) IsEmpty() bool {
	return len(l.ops) == 0
}

// LastSeq returns the sequence number of the newest pending operation, or 0
func (l *Log) LastSeq() uint64 {
	if len(l.ops) == 0 {
		return 0
	}
	return l.ops[len(l.ops)-1].Seq
}

// Snapshot returns a copy of the pending operations
func (l *Log) Snapshot() []Operation {
	out := make([]Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// CountByKind tallies pending operations per kind
func (l *Log) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, op := range l.ops {
		counts[op.Kind]++
	}
	return counts
}
