package cardsort

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/dendrex/internal/domain"
)

func TestParse_UsesFirstGroupColumnPresent(t *testing.T) {
	rows := []map[string]any{
		{"participant": "p1", "card index": float64(1), "card label": "Home", "sorted position": float64(2)},
		{"participant": "p1", "card index": float64(2), "sorted position": nil},
	}

	ps, err := Parse(rows, DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(ps))
	}
	if ps[0].Group() != "2" {
		t.Errorf("expected group from sorted position, got %q", ps[0].Group())
	}
	if ps[1].Group() != NoGroup {
		t.Errorf("expected empty group mapped to %q, got %q", NoGroup, ps[1].Group())
	}
	if ps[1].Label() != "Card 2" {
		t.Errorf("expected fallback label, got %q", ps[1].Label())
	}
}

func TestParse_MissingGroupColumn(t *testing.T) {
	rows := []map[string]any{{"participant": "p1", "card index": "1"}}

	_, err := Parse(rows, DefaultSchema())
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestParse_MissingParticipant(t *testing.T) {
	rows := []map[string]any{{"card index": "1", "category label": "A"}}

	_, err := Parse(rows, DefaultSchema())
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestSortByCard_Numeric(t *testing.T) {
	ps := []Placement{
		NewPlacement("p", "10", "", "g"),
		NewPlacement("p", "9", "", "g"),
		NewPlacement("p", "100", "", "g"),
	}

	SortByCard(ps)

	want := []string{"9", "10", "100"}
	for i, p := range ps {
		if p.Card() != want[i] {
			t.Fatalf("expected %v, got card %q at %d", want, p.Card(), i)
		}
	}
}

func TestSortByCard_Lexicographic(t *testing.T) {
	ps := []Placement{
		NewPlacement("p", "b", "", "g"),
		NewPlacement("p", "10", "", "g"),
		NewPlacement("p", "a", "", "g"),
	}

	SortByCard(ps)

	want := []string{"10", "a", "b"}
	for i, p := range ps {
		if p.Card() != want[i] {
			t.Fatalf("expected %v, got card %q at %d", want, p.Card(), i)
		}
	}
}

func TestGroups(t *testing.T) {
	ps := []Placement{
		NewPlacement("p1", "1", "", "A"),
		NewPlacement("p1", "2", "", "A"),
		NewPlacement("p1", "3", "", "B"),
		NewPlacement("p2", "1", "", "A"),
		NewPlacement("p2", "1", "", "A"),
	}

	got := Groups(ps)

	if len(got) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %v", len(got), got)
	}
	if len(got[0]) != 2 || got[0][0] != "1" || got[0][1] != "2" {
		t.Errorf("unexpected first bucket: %v", got[0])
	}
	if len(got[2]) != 1 {
		t.Errorf("expected duplicate card collapsed, got %v", got[2])
	}
}
