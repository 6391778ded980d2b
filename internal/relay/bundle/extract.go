package bundle

import "github.com/kora-labs/relayer/internal/errors"

// ExtractElements selects the transactions a caller wants processed:
// every transaction in order when indices is nil, or just the
// transactions at indices otherwise. Duplicate indices are silently
// skipped; an out-of-range index fails the whole extraction. The
// returned map records, for each selected original index, its
// position within the returned slice, so MergeElements can later
// splice signed results back into their original slots.
func ExtractElements(encodedTxs []string, indices []int) ([]string, map[int]int, error) {
	if indices == nil {
		positions := make(map[int]int, len(encodedTxs))
		for i := range encodedTxs {
			positions[i] = i
		}
		return append([]string{}, encodedTxs...), positions, nil
	}

	positions := make(map[int]int, len(indices))
	filtered := make([]string, 0, len(indices))
	for _, idx := range indices {
		if _, seen := positions[idx]; seen {
			continue
		}
		if idx < 0 || idx >= len(encodedTxs) {
			return nil, nil, errors.Validation("sign_only_indices index %d out of bounds (bundle has %d transactions)", idx, len(encodedTxs))
		}
		positions[idx] = len(filtered)
		filtered = append(filtered, encodedTxs[idx])
	}
	return filtered, positions, nil
}

// MergeElements merges signed back into original, preserving
// original's order: each original index present in positions is
// replaced by signed[positions[index]]; every other index is left
// untouched.
func MergeElements(original []string, signed []string, positions map[int]int) []string {
	out := make([]string, len(original))
	for i := range original {
		if pos, ok := positions[i]; ok {
			out[i] = signed[pos]
		} else {
			out[i] = original[i]
		}
	}
	return out
}
