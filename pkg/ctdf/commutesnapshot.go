package ctdf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the full result of one refresh of a commute route
type Snapshot struct {
	Origin          string `json:"origin" groups:"basic"`
	OriginName      string `json:"origin_name" groups:"basic"`
	Destination     string `json:"destination" groups:"basic"`
	DestinationName string `json:"destination_name" groups:"basic"`

	TimeWindow        int `json:"time_window" groups:"basic"`
	ServicesRequested int `json:"services_requested" groups:"basic"`

	ServicesTracked    int `json:"services_tracked" groups:"basic"`
	TotalServicesFound int `json:"total_services_found" groups:"basic"`

	Services  []ServiceRecord `json:"services" groups:"basic"`
	NextTrain *ServiceRecord  `json:"next_train" groups:"basic"`

	OnTimeCount    int `json:"on_time_count" groups:"basic"`
	DelayedCount   int `json:"delayed_count" groups:"basic"`
	CancelledCount int `json:"cancelled_count" groups:"basic"`

	MinorDelayCount  int `json:"minor_delays_count" groups:"detailed"`
	MajorDelayCount  int `json:"major_delays_count" groups:"detailed"`
	SevereDelayCount int `json:"severe_delays_count" groups:"detailed"`

	OverallStatus     OverallStatus `json:"overall_status" groups:"basic"`
	HasDisruption     bool          `json:"has_disruption" groups:"basic"`
	MaxDelayMinutes   int           `json:"max_delay_minutes" groups:"basic"`
	DisruptionReasons []string      `json:"disruption_reasons" groups:"basic"`

	Summary string `json:"summary" groups:"basic"`

	NrccMessages []string `json:"nrcc_messages" groups:"detailed"`
	GeneratedAt  string   `json:"generated_at" groups:"detailed"`

	LastUpdated time.Time `json:"last_updated" groups:"basic"`
	NextUpdate  time.Time `json:"next_update" groups:"basic"`
}

// OverallStatus is the ordinal disruption level of the whole commute, Normal being the lowest
type OverallStatus int

const (
	OverallStatusNormal OverallStatus = iota
	OverallStatusMinorDelays
	OverallStatusMajorDelays
	OverallStatusSevereDisruption
	OverallStatusCritical
)

var overallStatusNames = map[OverallStatus]string{
	OverallStatusNormal:           "Normal",
	OverallStatusMinorDelays:      "Minor Delays",
	OverallStatusMajorDelays:      "Major Delays",
	OverallStatusSevereDisruption: "Severe Disruption",
	OverallStatusCritical:         "Critical",
}

func (s OverallStatus) String() string {
	if name, ok := overallStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("OverallStatus(%d)", int(s))
}

func ParseOverallStatus(value string) (OverallStatus, error) {
	for status, name := range overallStatusNames {
		if name == value {
			return status, nil
		}
	}

	return OverallStatusNormal, fmt.Errorf("unknown overall status %q", value)
}

func (s OverallStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OverallStatus) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	status, err := ParseOverallStatus(value)
	if err != nil {
		return err
	}
	*s = status

	return nil
}
