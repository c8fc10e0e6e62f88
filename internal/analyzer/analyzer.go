package analyzer

import (
	"log/slog"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/signals"
)

// Analyzer classifies files. It holds no mutable state and is safe for
// concurrent use.
type Analyzer struct {
	th     Thresholds
	ex     *signals.Extractor
	logger *slog.Logger
}

// New validates th and builds an Analyzer. A nil extractor selects the
// default one; a nil logger selects slog.Default().
func New(th Thresholds, ex *signals.Extractor, logger *slog.Logger) (*Analyzer, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if ex == nil {
		var err error
		if ex, err = signals.NewExtractor(signals.DefaultConfig(), nil); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{th: th, ex: ex, logger: logger}, nil
}

// Thresholds returns the cutoffs in use.
func (a *Analyzer) Thresholds() Thresholds { return a.th }

// Extractor returns the signal extractor in use.
func (a *Analyzer) Extractor() *signals.Extractor { return a.ex }

// Analyze classifies one file. It never fails: binary content yields zero
// signals and a Standard recommendation.
func (a *Analyzer) Analyze(path, content string) Result {
	l := lang.Detect(path)
	s := a.ex.Extract(content, l)
	binary := signals.LooksBinary(content)

	flags := RedFlags(s, a.th)
	issues := Issues(s, flags)
	rec, reason := a.decide(path, content, l, s, flags, binary)

	res := Result{
		Path:              path,
		Language:          l,
		Recommendation:    rec,
		SkipReason:        reason,
		Signals:           s,
		EstimatedLLMValue: EstimateValue(rec, len(issues), len(flags), s),
		StaticIssueCount:  len(issues),
		Issues:            issues,
		RedFlags:          flags,
	}
	res.Summary = Summarize(res)
	a.logger.Debug("analyzed file",
		"path", path,
		"language", l.String(),
		"recommendation", rec.String(),
		"issues", len(issues))
	return res
}

// decide applies the tiering policy; the first matching rule wins.
func (a *Analyzer) decide(path, content string, l lang.Language, s signals.QualitySignals, flags []RedFlag, binary bool) (Recommendation, SkipReason) {
	clean := len(flags) == 0

	switch {
	case s.IsGenerated || s.IsProtobufGenerated || IsGeneratedPath(path, content):
		return Skip, ReasonGenerated
	case binary:
		return Standard, ReasonNone
	case clean && a.th.SkipNonCode && IsNonCodePath(path):
		return Skip, ReasonNonCode
	case clean && a.th.SkipTestFiles && IsTestOnly(path):
		return Skip, ReasonTestOnly
	case clean && s.CodeLines < a.th.MinCodeLines:
		return Skip, ReasonTrivial
	case !clean:
		return DeepDive, ReasonNone
	case s.CodeLines < a.th.SmallFileLines && l != lang.Unknown:
		return Minimal, ReasonNone
	}
	return Standard, ReasonNone
}
