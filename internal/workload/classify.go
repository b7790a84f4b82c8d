package workload

type Tier string

const (
	TierOverloaded Tier = "overloaded"
	TierBusy       Tier = "busy"
	TierNormal     Tier = "normal"
	TierIdle       Tier = "idle"
)

type Status struct {
	Label string `json:"label"`
	Tier  Tier   `json:"tier" enum:"overloaded,busy,normal,idle"`
}

// Thresholds are inclusive lower bounds, checked highest first.
type Thresholds struct {
	Overloaded float64 `yaml:"overloaded" json:"overloaded"`
	Busy       float64 `yaml:"busy" json:"busy"`
	Normal     float64 `yaml:"normal" json:"normal"`
}

var DefaultThresholds = Thresholds{Overloaded: 90, Busy: 70, Normal: 40}

var labels = map[Tier]string{
	TierOverloaded: "Overloaded",
	TierBusy:       "Busy",
	TierNormal:     "Normal",
	TierIdle:       "Available",
}

// Classify maps a workload percentage onto a tier using DefaultThresholds.
func Classify(pct float64) Status {
	return DefaultThresholds.Classify(pct)
}

func (t Thresholds) Classify(pct float64) Status {
	tier := TierIdle
	switch {
	case pct != pct: // NaN
	case pct >= t.Overloaded:
		tier = TierOverloaded
	case pct >= t.Busy:
		tier = TierBusy
	case pct >= t.Normal:
		tier = TierNormal
	}
	return Status{Label: labels[tier], Tier: tier}
}
