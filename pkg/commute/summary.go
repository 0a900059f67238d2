package commute

import (
	"fmt"

	"github.com/travigo/railcommute/pkg/util"
)

// BuildSummary is the one line description of the commute, based only on the train counts
func BuildSummary(onTime int, delayed int, cancelled int) string {
	total := onTime + delayed + cancelled

	switch {
	case total == 0:
		return "No trains found"
	case cancelled > 0 && delayed > 0:
		return "Severe disruptions"
	case cancelled > 0 && cancelled == total:
		return "All trains cancelled"
	case cancelled > 0:
		return fmt.Sprintf("%d %s cancelled", cancelled, util.Pluralise(cancelled, "train"))
	case delayed > 0 && delayed == total:
		return "All trains delayed"
	case delayed > 0:
		running := onTime + delayed
		return fmt.Sprintf("%d %s running, %d delayed", running, util.Pluralise(running, "train"), delayed)
	default:
		return fmt.Sprintf("%d %s on time", onTime, util.Pluralise(onTime, "train"))
	}
}
