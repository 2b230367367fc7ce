package ordering

import (
	"testing"

	"folio/models"
)

func threeSections() []models.Section {
	return []models.Section{
		{ID: "a", Type: models.SectionIntro, Order: 0, Visible: true},
		{ID: "b", Type: models.SectionSkills, Order: 1, Visible: true},
		{ID: "c", Type: models.SectionProjects, Order: 2, Visible: true},
	}
}

func orders(list []models.Section) []int {
	out := make([]int, len(list))
	for i, s := range list {
		out[i] = s.Order
	}
	return out
}

func TestMoveLastToFirst(t *testing.T) {
	in := threeSections()
	out := Move(in, 2, 0)

	if got := []string{out[0].ID, out[1].ID, out[2].ID}; got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("unexpected order %v", got)
	}
	for i, o := range orders(out) {
		if o != i {
			t.Fatalf("orders not contiguous: %v", orders(out))
		}
	}
	if in[2].ID != "c" || in[0].Order != 0 {
		t.Fatal("input was modified")
	}
}

func TestMoveNoOps(t *testing.T) {
	in := threeSections()
	in[1].Order = 7
	if out := Move(in, 1, 1); out[1].Order != 7 {
		t.Fatal("from == to should not renumber")
	}
	single := []models.Section{{ID: "a", Order: 3}}
	if out := Move(single, 0, 0); out[0].Order != 3 {
		t.Fatal("single element list should be untouched")
	}
}

func TestMoveOrdersAreContiguousForAnyMove(t *testing.T) {
	for n := 1; n <= 6; n++ {
		list := make([]models.Section, n)
		for i := range list {
			list[i] = models.Section{Type: models.SectionType(rune('a' + i)), Order: i * 10}
		}
		for from := 0; from < n; from++ {
			for to := 0; to < n; to++ {
				if from == to {
					continue
				}
				out := Move(list, from, to)
				seen := map[int]bool{}
				for _, s := range out {
					if s.Order < 0 || s.Order >= n || seen[s.Order] {
						t.Fatalf("n=%d move %d->%d produced orders %v", n, from, to, orders(out))
					}
					seen[s.Order] = true
				}
			}
		}
	}
}

func TestToggleVisibilityTouchesOneElement(t *testing.T) {
	in := threeSections()
	out := ToggleVisibility(in, "skills")
	if out[1].Visible || !out[0].Visible || !out[2].Visible {
		t.Fatalf("unexpected visibility %+v", out)
	}
	if out[1].Order != 1 {
		t.Fatal("toggle changed order")
	}
	out = ToggleVisibility(out, "b")
	if !out[1].Visible {
		t.Fatal("toggle by id did not flip back")
	}
	if !in[1].Visible {
		t.Fatal("input was modified")
	}
}
