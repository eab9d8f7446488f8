package store

import "fmt"

// Key prefixes as laid out in spec §4.2. All keys are UTF-8 byte strings
// with ':' as the field separator.
const (
	prefixJournal = "j:"
	prefixState   = "s:"
	prefixWorkflow = "w:"
	prefixTimer   = "t:"
	prefixStatus  = "i:status:"
)

// seqWidth is the zero-padded decimal width used for sequence numbers and
// fire times. Lexicographic byte order equals numeric order for every value
// below 10^16 (max uint64 is 20 digits, so larger values are not ordered
// correctly; 16 digits covers every
// fire-time-in-milliseconds value for the next ~300000 years and every
// practical per-workflow sequence count).
const seqWidth = 16

// JournalKey encodes a journal entry key: j:{workflow_id}:{seq as
// zero-padded 16-digit decimal}.
func JournalKey(workflowID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%0*d", prefixJournal, workflowID, seqWidth, seq))
}

// JournalPrefix encodes the prefix under which every journal entry for a
// workflow lives: j:{workflow_id}:.
func JournalPrefix(workflowID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixJournal, workflowID))
}

// StateKey encodes a per-workflow state entry key: s:{workflow_id}:{user_key}.
func StateKey(workflowID, userKey string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixState, workflowID, userKey))
}

// StatePrefix encodes the prefix under which every state entry for a
// workflow lives: s:{workflow_id}:.
func StatePrefix(workflowID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixState, workflowID))
}

// WorkflowKey encodes a workflow metadata key: w:{workflow_id}.
func WorkflowKey(workflowID string) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixWorkflow, workflowID))
}

// TimerKey encodes a durable timer key: t:{fire_time_ms as zero-padded
// 16-digit decimal}:{timer_id}.
func TimerKey(fireTimeMs int64, timerID string) []byte {
	return []byte(fmt.Sprintf("%s%0*d:%s", prefixTimer, seqWidth, fireTimeMs, timerID))
}

// TimerPrefix is the prefix under which every durable timer lives: t:.
func TimerPrefix() []byte {
	return []byte(prefixTimer)
}

// TimerUpperBound returns the exclusive upper bound for "fire time <= now"
// scans: every timer key up to and including fire time now sorts strictly
// before this key.
func TimerUpperBound(nowMs int64) []byte {
	return []byte(fmt.Sprintf("%s%0*d:%s", prefixTimer, seqWidth, nowMs, "\xff"))
}

// StatusIndexKey encodes a status-index entry: i:status:{status}:{workflow_id}.
func StatusIndexKey(status, workflowID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixStatus, status, workflowID))
}

// StatusIndexPrefix is the prefix under which every workflow id with a
// given status lives: i:status:{status}:.
func StatusIndexPrefix(status string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixStatus, status))
}

// PrefixEnd returns the smallest key that is strictly greater than every
// key with the given prefix, by incrementing the last byte that is not
// already 0xFF and truncating everything after it. An all-0xFF prefix has
// no finite upper bound; PrefixEnd returns nil in that case, meaning "scan
// to the end of the keyspace".
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
