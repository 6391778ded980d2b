package bundle

import (
	"reflect"
	"testing"

	"github.com/kora-labs/relayer/internal/errors"
)

func TestExtractElements_NilIndicesReturnsAllInOrder(t *testing.T) {
	txs := []string{"a", "b", "c"}

	filtered, positions, err := ExtractElements(txs, nil)
	if err != nil {
		t.Fatalf("ExtractElements() error: %v", err)
	}
	if !reflect.DeepEqual(filtered, txs) {
		t.Errorf("filtered = %v, want %v", filtered, txs)
	}
	want := map[int]int{0: 0, 1: 1, 2: 2}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestExtractElements_SpecificIndices(t *testing.T) {
	txs := []string{"a", "b", "c", "d"}

	filtered, positions, err := ExtractElements(txs, []int{2, 0})
	if err != nil {
		t.Fatalf("ExtractElements() error: %v", err)
	}
	if !reflect.DeepEqual(filtered, []string{"c", "a"}) {
		t.Errorf("filtered = %v, want [c a]", filtered)
	}
	want := map[int]int{2: 0, 0: 1}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestExtractElements_DuplicateIndicesSilentlySkipped(t *testing.T) {
	txs := []string{"a", "b", "c"}

	filtered, positions, err := ExtractElements(txs, []int{1, 1, 1})
	if err != nil {
		t.Fatalf("ExtractElements() error: %v", err)
	}
	if !reflect.DeepEqual(filtered, []string{"b"}) {
		t.Errorf("filtered = %v, want [b]", filtered)
	}
	want := map[int]int{1: 0}
	if !reflect.DeepEqual(positions, want) {
		t.Errorf("positions = %v, want %v", positions, want)
	}
}

func TestExtractElements_OutOfRangeIndexFails(t *testing.T) {
	txs := []string{"a", "b"}

	_, _, err := ExtractElements(txs, []int{0, 5})
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("ExtractElements() error = %v, want validation error", err)
	}
}

func TestExtractElements_NegativeIndexFails(t *testing.T) {
	txs := []string{"a", "b"}

	_, _, err := ExtractElements(txs, []int{-1})
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("ExtractElements() error = %v, want validation error", err)
	}
}

func TestExtractElements_EmptyIndicesReturnsEmpty(t *testing.T) {
	txs := []string{"a", "b"}

	filtered, positions, err := ExtractElements(txs, []int{})
	if err != nil {
		t.Fatalf("ExtractElements() error: %v", err)
	}
	if len(filtered) != 0 {
		t.Errorf("filtered = %v, want empty", filtered)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %v, want empty", positions)
	}
}

func TestMergeElements_PreservesOriginalOrder(t *testing.T) {
	original := []string{"a", "b", "c", "d"}
	signed := []string{"C-signed", "A-signed"}
	positions := map[int]int{2: 0, 0: 1}

	merged := MergeElements(original, signed, positions)
	want := []string{"A-signed", "b", "C-signed", "d"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
}

func TestMergeElements_AllSigned(t *testing.T) {
	original := []string{"a", "b", "c"}
	signed := []string{"a2", "b2", "c2"}
	positions := map[int]int{0: 0, 1: 1, 2: 2}

	merged := MergeElements(original, signed, positions)
	if !reflect.DeepEqual(merged, signed) {
		t.Errorf("merged = %v, want %v", merged, signed)
	}
}

func TestMergeElements_DescendingIndices(t *testing.T) {
	original := []string{"a", "b", "c"}
	signed := []string{"c2", "b2"}
	positions := map[int]int{2: 0, 1: 1}

	merged := MergeElements(original, signed, positions)
	want := []string{"a", "b2", "c2"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
}
