package rating

import "sort"

// Placements turns final totals into scores in [0,1]. Lower totals place
// higher; tied players share the average of their places.
func Placements(totals map[string]int) map[string]float64 {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] < totals[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make(map[string]float64, len(ids))
	if len(ids) == 1 {
		out[ids[0]] = 1
		return out
	}
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && totals[ids[j]] == totals[ids[i]] {
			j++
		}
		avg := float64(i+j-1) / 2
		for k := i; k < j; k++ {
			out[ids[k]] = 1 - avg/float64(len(ids)-1)
		}
		i = j
	}
	return out
}

// Update rates one finished game. Each player is scored by placement against
// the average of the others. Players missing from current start at New().
func Update(current map[string]Rating, totals map[string]int) map[string]Rating {
	if len(totals) < 2 {
		return current
	}
	scores := Placements(totals)

	before := make(map[string]glicko, len(totals))
	for id := range totals {
		r, ok := current[id]
		if !ok {
			r = New()
		}
		before[id] = r.internal()
	}

	next := make(map[string]Rating, len(current)+len(totals))
	for id, r := range current {
		next[id] = r
	}
	for id, r := range before {
		var opp glicko
		for other, o := range before {
			if other == id {
				continue
			}
			opp.mu += o.mu
			opp.phi += o.phi
		}
		n := float64(len(before) - 1)
		opp.mu /= n
		opp.phi /= n
		next[id] = update(r, opp, scores[id]).display()
	}
	return next
}
