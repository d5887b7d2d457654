package pipeline

import "github.com/okian/compintel/internal/domain/model"

// State is the run-scoped bag passed between stages. Stages receive it by
// value and return an updated copy; they replace slices rather than writing
// into the ones they were given.
type State struct {
	Request     model.Request
	Raw         []model.RawItem
	Classified  []model.ClassifiedEvent
	Trends      []model.TrendInsight
	Scored      []model.ScoredEvent
	Strategic   []model.StrategicEvent
	Final       []model.FinalEvent
	Aggregated  model.AggregatedPlan
	DailyReport model.DailyReport
}

// Result exports the state as a ResultBag.
func (s State) Result() model.ResultBag {
	return model.ResultBag{
		Raw:         s.Raw,
		Classified:  s.Classified,
		Trends:      s.Trends,
		Scored:      s.Scored,
		Strategic:   s.Strategic,
		Final:       s.Final,
		Aggregated:  s.Aggregated,
		DailyReport: s.DailyReport,
	}
}

// emitted is the number of items a stage wrote, for metrics.
func (s State) emitted(stage string) int {
	switch stage {
	case StageRetrieve:
		return len(s.Raw)
	case StageClassify:
		return len(s.Classified)
	case StageTrends:
		return len(s.Trends)
	case StageScore:
		return len(s.Scored)
	case StageAnalyze:
		return len(s.Strategic)
	case StageActions:
		return len(s.Final)
	default:
		return 0
	}
}
