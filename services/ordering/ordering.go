package ordering

import (
	"folio/models"
)

// Move removes the element at from, reinserts it at to and renumbers every
// element's order to its index. The input is not modified.
func Move(list []models.Section, from, to int) []models.Section {
	out := clone(list)
	if from == to || len(out) <= 1 {
		return out
	}
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) {
		return out
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]models.Section{moved}, out[to:]...)...)
	return Renumber(out)
}

// ToggleVisibility flips visible on the first element whose id or type
// matches idOrType. Order is left untouched.
func ToggleVisibility(list []models.Section, idOrType string) []models.Section {
	out := clone(list)
	for i := range out {
		if out[i].ID == idOrType || string(out[i].Type) == idOrType {
			out[i].Visible = !out[i].Visible
			break
		}
	}
	return out
}

// Renumber sets order = index on every element in place and returns list.
func Renumber(list []models.Section) []models.Section {
	for i := range list {
		list[i].Order = i
	}
	return list
}

func clone(list []models.Section) []models.Section {
	out := make([]models.Section, len(list))
	copy(out, list)
	return out
}

func indexOf(list []models.Section, idOrType string) int {
	for i, s := range list {
		if s.ID == idOrType || string(s.Type) == idOrType {
			return i
		}
	}
	return -1
}
