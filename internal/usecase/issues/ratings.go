package issues

import "fixversity/internal/ports"

// AggregateRatings averages ratings per worker in order of first appearance.
// Workers without a rated assignment do not appear.
func AggregateRatings(rows []ports.RatedAssignment) []WorkerRating {
	type tally struct {
		sum   int
		count int
	}
	order := make([]string, 0)
	tallies := make(map[string]*tally)
	for _, row := range rows {
		if row.AssignedTo == nil || row.Rating == nil {
			continue
		}
		t, ok := tallies[*row.AssignedTo]
		if !ok {
			t = &tally{}
			tallies[*row.AssignedTo] = t
			order = append(order, *row.AssignedTo)
		}
		t.sum += *row.Rating
		t.count++
	}

	out := make([]WorkerRating, 0, len(order))
	for _, workerID := range order {
		t := tallies[workerID]
		out = append(out, WorkerRating{
			WorkerID:      workerID,
			AverageRating: float64(t.sum) / float64(t.count),
			RatingCount:   t.count,
		})
	}
	return out
}
