package recovery

import (
	"fmt"

	"github.com/forPelevin/subalign/internal/faults"
)

// InvalidPartitionError reports the first index group that breaks the
// partition of [0, wordCount). Group and Index are -1 when not applicable.
type InvalidPartitionError struct {
	Reason string
	Group  int
	Index  int
	Raw    string
}

func (e *InvalidPartitionError) Error() string {
	switch {
	case e.Group >= 0 && e.Index >= 0:
		return fmt.Sprintf("invalid partition: group %d index %d: %s", e.Group, e.Index, e.Reason)
	case e.Group >= 0:
		return fmt.Sprintf("invalid partition: group %d: %s", e.Group, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("invalid partition: index %d: %s", e.Index, e.Reason)
	default:
		return "invalid partition: " + e.Reason
	}
}

func (e *InvalidPartitionError) Unwrap() error { return faults.ErrParse }

// ValidatePartition checks that groups list every index of [0, wordCount)
// exactly once, ascending within and across groups, with no empty group.
func ValidatePartition(groups [][]int, wordCount int) error {
	if wordCount <= 0 {
		return faults.Precondition("validate partition", "word count must be positive, got %d", wordCount)
	}
	if len(groups) == 0 {
		return &InvalidPartitionError{Reason: "no groups", Group: -1, Index: -1}
	}
	seen := make([]bool, wordCount)
	prev := -1
	for gi, g := range groups {
		if len(g) == 0 {
			return &InvalidPartitionError{Reason: "empty group", Group: gi, Index: -1}
		}
		for _, idx := range g {
			switch {
			case idx < 0 || idx >= wordCount:
				return &InvalidPartitionError{Reason: fmt.Sprintf("out of range [0,%d)", wordCount), Group: gi, Index: idx}
			case seen[idx]:
				return &InvalidPartitionError{Reason: "duplicate index", Group: gi, Index: idx}
			case idx < prev:
				return &InvalidPartitionError{Reason: "indices not ascending", Group: gi, Index: idx}
			}
			seen[idx] = true
			prev = idx
		}
	}
	for idx, ok := range seen {
		if !ok {
			return &InvalidPartitionError{Reason: "index missing", Group: -1, Index: idx}
		}
	}
	return nil
}
