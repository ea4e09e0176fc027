package index

import (
	"encoding/json"
	"fmt"
	"io"

	"docqa/internal/domain"
)

// snapshot is the durable form of an index. Vectors serialize through JSON,
// which round-trips float32 values exactly.
type snapshot struct {
	Dim      int              `json:"dim"`
	Passages []domain.Passage `json:"passages"`
	Vectors  [][]float32      `json:"vectors"`
}

// Save writes the index to w. load(save(x)) yields an index whose search
// results are identical to x's for any query.
func (ix *Index) Save(w io.Writer) error {
	return json.NewEncoder(w).Encode(snapshot{
		Dim:      ix.dim,
		Passages: ix.passages,
		Vectors:  ix.vectors,
	})
}

// Load reads an index back from r. Unreadable data, an empty index, or any
// vector off the recorded dimension is corrupt state; a partially usable
// index is never returned.
func Load(r io.Reader) (*Index, error) {
	var s snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decoding index: %v", domain.ErrCorruptState, err)
	}
	if s.Dim <= 0 || len(s.Passages) == 0 || len(s.Passages) != len(s.Vectors) {
		return nil, fmt.Errorf("%w: index snapshot is inconsistent", domain.ErrCorruptState)
	}
	for i, v := range s.Vectors {
		if len(v) != s.Dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrCorruptState, i, len(v), s.Dim)
		}
	}
	return &Index{dim: s.Dim, passages: s.Passages, vectors: s.Vectors}, nil
}
