package issue

// Tone is the semantic colour family a badge renders with.
type Tone string

const (
	ToneNeutral     Tone = "neutral"
	TonePrimary     Tone = "primary"
	ToneWarning     Tone = "warning"
	ToneSuccess     Tone = "success"
	ToneDestructive Tone = "destructive"
)

// Descriptor is everything a view needs to render one enum value.
type Descriptor struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Tone  Tone   `json:"tone"`
}

// The tables below must stay total over their enums; descriptors_test.go
// walks All*() and fails on any value without a label.
var categoryDescriptors = map[Category]Descriptor{
	CategoryElectrical: {Label: "Electrical", Icon: "zap", Tone: ToneWarning},
	CategoryPlumbing:   {Label: "Plumbing", Icon: "droplets", Tone: TonePrimary},
	CategoryHVAC:       {Label: "HVAC", Icon: "wind", Tone: TonePrimary},
	CategoryCleaning:   {Label: "Cleaning", Icon: "sparkles", Tone: ToneNeutral},
	CategoryIT:         {Label: "IT Support", Icon: "monitor", Tone: TonePrimary},
	CategoryFurniture:  {Label: "Furniture", Icon: "armchair", Tone: ToneNeutral},
	CategorySafety:     {Label: "Safety", Icon: "shield", Tone: ToneDestructive},
	CategoryOther:      {Label: "Other", Icon: "help-circle", Tone: ToneNeutral},
}

var statusDescriptors = map[Status]Descriptor{
	StatusOpen:       {Label: "Open", Icon: "clock", Tone: ToneDestructive},
	StatusInProgress: {Label: "In Progress", Icon: "loader", Tone: ToneWarning},
	StatusResolved:   {Label: "Resolved", Icon: "check-circle", Tone: ToneSuccess},
}

var priorityDescriptors = map[Priority]Descriptor{
	PriorityLow:    {Label: "Low", Icon: "arrow-down", Tone: ToneNeutral},
	PriorityMedium: {Label: "Medium", Icon: "arrow-up", Tone: TonePrimary},
	PriorityHigh:   {Label: "High", Icon: "alert-triangle", Tone: ToneWarning},
	PriorityUrgent: {Label: "Urgent", Icon: "flame", Tone: ToneDestructive},
}

func (c Category) Describe() Descriptor { return categoryDescriptors[c] }
func (s Status) Describe() Descriptor   { return statusDescriptors[s] }
func (p Priority) Describe() Descriptor { return priorityDescriptors[p] }

func (c Category) Label() string { return c.Describe().Label }
func (s Status) Label() string   { return s.Describe().Label }
func (p Priority) Label() string { return p.Describe().Label }

// LabelTables is the read-only view served to clients that render badges.
type LabelTables struct {
	Categories map[Category]Descriptor `json:"categories"`
	Statuses   map[Status]Descriptor   `json:"statuses"`
	Priorities map[Priority]Descriptor `json:"priorities"`
}

func Tables() LabelTables {
	out := LabelTables{
		Categories: make(map[Category]Descriptor, len(categoryDescriptors)),
		Statuses:   make(map[Status]Descriptor, len(statusDescriptors)),
		Priorities: make(map[Priority]Descriptor, len(priorityDescriptors)),
	}
	for k, v := range categoryDescriptors {
		out.Categories[k] = v
	}
	for k, v := range statusDescriptors {
		out.Statuses[k] = v
	}
	for k, v := range priorityDescriptors {
		out.Priorities[k] = v
	}
	return out
}
