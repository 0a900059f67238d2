package commute

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
)

const DefaultDisruptionRule = `OverallStatus != "Normal"`

// DisruptionRule decides the binary "has disruption" flag of a snapshot
type DisruptionRule struct {
	Source  string
	program *vm.Program
}

type disruptionRuleEnv struct {
	OverallStatus   string
	MaxDelayMinutes int

	ServicesTracked int
	OnTimeCount     int
	DelayedCount    int
	CancelledCount  int

	MinorDelayCount  int
	MajorDelayCount  int
	SevereDelayCount int
}

func NewDisruptionRule(source string) (*DisruptionRule, error) {
	if source == "" {
		source = DefaultDisruptionRule
	}

	program, err := expr.Compile(source, expr.Env(disruptionRuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile disruption rule: %w", err)
	}

	return &DisruptionRule{
		Source:  source,
		program: program,
	}, nil
}

func (r *DisruptionRule) Evaluate(snapshot *ctdf.Snapshot) bool {
	env := disruptionRuleEnv{
		OverallStatus:   snapshot.OverallStatus.String(),
		MaxDelayMinutes: snapshot.MaxDelayMinutes,

		ServicesTracked: snapshot.ServicesTracked,
		OnTimeCount:     snapshot.OnTimeCount,
		DelayedCount:    snapshot.DelayedCount,
		CancelledCount:  snapshot.CancelledCount,

		MinorDelayCount:  snapshot.MinorDelayCount,
		MajorDelayCount:  snapshot.MajorDelayCount,
		SevereDelayCount: snapshot.SevereDelayCount,
	}

	output, err := expr.Run(r.program, env)
	if err != nil {
		log.Error().Err(err).Str("rule", r.Source).Msg("Failed to evaluate disruption rule")
		return snapshot.OverallStatus != ctdf.OverallStatusNormal
	}

	return output.(bool)
}
