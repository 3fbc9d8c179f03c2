// Package cardsort models card-sorting results: which participant put which card in which group.
package cardsort

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/record"
)

// NoGroup is the group key for cards a participant left unsorted.
const NoGroup = "(no group)"

// Schema names the card-sort input columns.
// GroupColumns are tried in order; the first one present in the input is used.
type Schema struct {
	Participant  string
	Card         string
	Label        string
	GroupColumns []string
}

// DefaultSchema matches the card-sorting export layout.
func DefaultSchema() Schema {
	return Schema{
		Participant:  "participant",
		Card:         "card index",
		Label:        "card label",
		GroupColumns: []string{"category label", "sorted position"},
	}
}

// Placement is one card placed by one participant into one group.
type Placement struct {
	participant string
	card        string
	label       string
	group       string
}

// NewPlacement creates a Placement. An empty group becomes NoGroup.
func NewPlacement(participant, card, label, group string) Placement {
	if group == "" {
		group = NoGroup
	}
	return Placement{participant: participant, card: card, label: label, group: group}
}

// Participant returns the participant id.
func (p Placement) Participant() string { return p.participant }

// Card returns the card key.
func (p Placement) Card() string { return p.card }

// Label returns the card label, or "Card <key>" when none was given.
func (p Placement) Label() string {
	if p.label == "" {
		return "Card " + p.card
	}
	return p.label
}

// Group returns the group key.
func (p Placement) Group() string { return p.group }

// Parse converts decoded rows into placements.
// Participant and card columns are required, plus at least one group column.
// Rows without a card key are skipped.
func Parse(rows []map[string]any, schema Schema) ([]Placement, error) {
	if err := record.CheckColumns(rows, []string{schema.Participant, schema.Card}); err != nil {
		return nil, err
	}

	groupCol := ""
	for _, col := range schema.GroupColumns {
		if hasColumn(rows, col) {
			groupCol = col
			break
		}
	}
	if groupCol == "" {
		return nil, fmt.Errorf("%w: need one of columns: %s",
			domain.ErrSchema, strings.Join(schema.GroupColumns, ", "))
	}

	out := make([]Placement, 0, len(rows))
	for _, row := range rows {
		card := record.Cell(row[schema.Card])
		if card == "" {
			continue
		}
		out = append(out, NewPlacement(
			record.Cell(row[schema.Participant]),
			card,
			record.Cell(row[schema.Label]),
			record.Cell(row[groupCol]),
		))
	}
	return out, nil
}

func hasColumn(rows []map[string]any, col string) bool {
	for _, row := range rows {
		if _, ok := row[col]; ok {
			return true
		}
	}
	return false
}

// SortByCard orders placements by card key, numerically when every key is an integer.
// The sort is stable so participant order within a card is preserved.
func SortByCard(ps []Placement) {
	numeric := true
	nums := make(map[string]int64, len(ps))
	for _, p := range ps {
		n, err := strconv.ParseInt(p.card, 10, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[p.card] = n
	}

	sort.SliceStable(ps, func(i, j int) bool {
		if numeric {
			return nums[ps[i].card] < nums[ps[j].card]
		}
		return ps[i].card < ps[j].card
	})
}

// Groups returns, per (participant, group), the distinct cards in it.
// Buckets are ordered by first appearance so iteration is deterministic.
func Groups(ps []Placement) [][]string {
	type key struct{ participant, group string }
	index := make(map[key]int)
	var buckets [][]string
	seen := make(map[key]map[string]struct{})

	for _, p := range ps {
		k := key{p.participant, p.group}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, nil)
			seen[k] = make(map[string]struct{})
		}
		if _, dup := seen[k][p.card]; dup {
			continue
		}
		seen[k][p.card] = struct{}{}
		buckets[i] = append(buckets[i], p.card)
	}
	return buckets
}
