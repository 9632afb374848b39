package issue

var buildings = []string{
	"Main Academic Building",
	"Science Center",
	"Library",
	"Student Center",
	"Engineering Hall",
	"Arts Building",
	"Administration Building",
	"Dormitory A",
	"Dormitory B",
	"Sports Complex",
	"Cafeteria",
	"Parking Structure",
}

// Buildings returns the campus buildings offered when reporting an issue.
func Buildings() []string {
	out := make([]string, len(buildings))
	copy(out, buildings)
	return out
}
