package enums

import "fmt"

// ScheduleFrequency is the cadence of a recurring dividend.
type ScheduleFrequency string

const (
	FrequencyMonthly   ScheduleFrequency = "monthly"
	FrequencyQuarterly ScheduleFrequency = "quarterly"
	FrequencyAnnually  ScheduleFrequency = "annually"
)

var validScheduleFrequencies = []ScheduleFrequency{
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
}

// String implements fmt.Stringer.
func (f ScheduleFrequency) String() string {
	return string(f)
}

// IsValid reports whether the value is a known ScheduleFrequency.
func (f ScheduleFrequency) IsValid() bool {
	for _, candidate := range validScheduleFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// Months returns how many calendar months one period spans.
func (f ScheduleFrequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnually:
		return 12
	default:
		return 0
	}
}

// ParseScheduleFrequency converts raw input into a ScheduleFrequency.
func ParseScheduleFrequency(value string) (ScheduleFrequency, error) {
	for _, candidate := range validScheduleFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid schedule frequency %q", value)
}
