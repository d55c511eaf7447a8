package worker

import (
	"regexp"
	"strings"

	"github.com/dusk-indust/mend/internal/issue"
)

// RiskLevel classifies a remediation before a worker applies it. High risk
// changes are deferred for human review instead of being auto-applied.
type RiskLevel string

const (
	RiskHigh RiskLevel = "high"
	RiskLow  RiskLevel = "low"
)

// RiskRule is one row of the classification table. Rules are evaluated in
// order and the first match wins, so ambiguous remediations resolve to
// whatever the earliest matching rule says.
type RiskRule struct {
	Name  string
	Level RiskLevel
	Match func(sig RiskSignals) bool
}

// RiskSignals is the normalized view of an issue the rules match against.
type RiskSignals struct {
	// Text is the lowercased description plus remediation.
	Text string
	// FileCount is the number of distinct file paths the remediation
	// mentions, including the issue's own file.
	FileCount int
	Severity  issue.Severity
}

var pathPattern = regexp.MustCompile(`[\w./-]+\.(go|ts|tsx|py|rs|sql|proto|yml|yaml|json)\b`)

// ExtractSignals derives RiskSignals from an issue.
func ExtractSignals(iss issue.Issue) RiskSignals {
	text := strings.ToLower(iss.Description + "\n" + iss.Remediation)

	files := map[string]bool{iss.File: true}
	for _, m := range pathPattern.FindAllString(iss.Remediation, -1) {
		files[m] = true
	}

	return RiskSignals{
		Text:      text,
		FileCount: len(files),
		Severity:  iss.Severity,
	}
}

func textHasAny(sig RiskSignals, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(sig.Text, t) {
			return true
		}
	}
	return false
}

// DefaultRiskRules is the ordered rule table. High-risk rules come first;
// the trailing catch-all marks everything else low risk.
var DefaultRiskRules = []RiskRule{
	{
		Name:  "public-interface-change",
		Level: RiskHigh,
		Match: func(sig RiskSignals) bool {
			return textHasAny(sig, "public api", "public interface", "exported signature", "breaking change", "api contract")
		},
	},
	{
		Name:  "shared-state-mutation",
		Level: RiskHigh,
		Match: func(sig RiskSignals) bool {
			return textHasAny(sig, "global state", "shared state", "singleton", "global variable", "process-wide")
		},
	},
	{
		Name:  "schema-or-data-migration",
		Level: RiskHigh,
		Match: func(sig RiskSignals) bool {
			return textHasAny(sig, "migration", "schema change", "alter table", "data backfill")
		},
	},
	{
		Name:  "wide-blast-radius",
		Level: RiskHigh,
		Match: func(sig RiskSignals) bool { return sig.FileCount > 3 },
	},
	{
		Name:  "default-low",
		Level: RiskLow,
		Match: func(sig RiskSignals) bool { return true },
	},
}

// Classifier applies an ordered rule table to issues.
type Classifier struct {
	rules []RiskRule
}

// NewClassifier returns a Classifier over the given rules, falling back to
// DefaultRiskRules when none are provided.
func NewClassifier(rules []RiskRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRiskRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the risk level for iss and the name of the rule that
// decided it. An issue no rule matches is high risk: an unclassifiable
// remediation must not be auto-applied.
func (c *Classifier) Classify(iss issue.Issue) (RiskLevel, string) {
	sig := ExtractSignals(iss)
	for _, rule := range c.rules {
		if rule.Match(sig) {
			return rule.Level, rule.Name
		}
	}
	return RiskHigh, "unclassified"
}
