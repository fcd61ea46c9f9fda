package core

import "strings"

// LabelBank accumulates the category labels offered to a participant. It
// starts from the configured seed labels and grows as the participant adds
// new ones, trial by trial. The bank is an explicit per-session value —
// each Add returns the updated bank — rather than shared state, so the
// progression of offered labels is auditable per trial.
type LabelBank struct {
	labels []string
	seen   map[string]struct{}
}

// NewLabelBank creates a bank seeded with the given labels. Seed labels
// are trimmed and case-insensitively deduplicated, first spelling wins.
func NewLabelBank(seed []string) LabelBank {
	bank := LabelBank{seen: make(map[string]struct{}, len(seed))}
	return bank.Add(seed)
}

// Add folds new labels into the bank and returns the updated bank.
// Duplicates (case-insensitive) and blank entries are ignored; insertion
// order is preserved.
func (b LabelBank) Add(labels []string) LabelBank {
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := b.seen[key]; ok {
			continue
		}
		b.seen[key] = struct{}{}
		b.labels = append(b.labels, label)
	}
	return b
}

// Labels returns the bank contents in insertion order. The returned slice
// is a copy; callers cannot mutate the bank through it.
func (b LabelBank) Labels() []string {
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}

// Len returns the number of labels in the bank.
func (b LabelBank) Len() int {
	return len(b.labels)
}
