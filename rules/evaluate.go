package rules

import (
	"fmt"

	mq "github.com/gofhir/miiquality"
)

// Evaluate runs r on s and converts its outcomes to findings. A check that
// returns an error or panics yields a single error finding carrying the
// *miiquality.CheckEvaluationError message.
func Evaluate(r *Rule, s *Subject) (findings []mq.Finding) {
	target := s.Target()

	defer func() {
		if p := recover(); p != nil {
			findings = []mq.Finding{evaluationFailure(r, target, fmt.Errorf("panic: %v", p))}
		}
	}()

	outcomes, err := r.Check(s)
	if err != nil {
		return []mq.Finding{evaluationFailure(r, target, err)}
	}

	findings = make([]mq.Finding, 0, len(outcomes))
	for _, o := range outcomes {
		severity := r.Severity
		if o.Passed {
			severity = mq.SeverityPass
		}
		findings = append(findings, mq.NewFinding(r.ID, r.Category, severity).
			On(target).
			At(o.Path).
			Message(o.Message).
			Build())
	}
	return findings
}

func evaluationFailure(r *Rule, target mq.Target, err error) mq.Finding {
	evalErr := &mq.CheckEvaluationError{CheckID: r.ID, Target: target, Err: err}
	return mq.NewFinding(r.ID, r.Category, mq.SeverityError).
		On(target).
		Message(evalErr.Error()).
		Build()
}
