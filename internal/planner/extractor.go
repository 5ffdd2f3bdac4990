// internal/planner/extractor.go
package planner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"finlife-navigator/internal/models"

	"github.com/shopspring/decimal"
)

var (
	amountPattern    = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	timeframePattern = regexp.MustCompile(`(?i)(\d+)\s*(month|year|week|day)s?`)

	esgPattern      = regexp.MustCompile(`(?i)esg|ethical|sustainable|socially responsible|green`)
	holdingsPattern = regexp.MustCompile(`(?i)holdings|portfolio|existing investments`)
	expensesPattern = regexp.MustCompile(`(?i)expenses|recurring bills|fixed costs`)
)

type riskRule struct {
	value   models.RiskTolerance
	pattern *regexp.Regexp
}

type goalRule struct {
	value   models.Goal
	pattern *regexp.Regexp
}

// First matching rule wins.
var riskRules = []riskRule{
	{models.RiskLow, regexp.MustCompile(`(?i)low risk|conservative|cautious`)},
	{models.RiskMedium, regexp.MustCompile(`(?i)medium risk|moderate`)},
	{models.RiskHigh, regexp.MustCompile(`(?i)high risk|aggressive`)},
}

var goalRules = []goalRule{
	{models.GoalRetirement, regexp.MustCompile(`(?i)retire|retirement`)},
	{models.GoalBuyHome, regexp.MustCompile(`(?i)house|home|down payment`)},
	{models.GoalEmergencyFund, regexp.MustCompile(`(?i)emergency fund|rainy day|safety net`)},
}

// Expense names that can be overridden inline, e.g. "rent $1,200".
var overrideExpenseNames = []string{"rent", "utilities"}

var overridePatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(overrideExpenseNames))
	for _, name := range overrideExpenseNames {
		out[name] = regexp.MustCompile(fmt.Sprintf(`(?i)%s\s*\$?(\d+(?:,\d{3})*(?:\.\d+)?)`, regexp.QuoteMeta(name)))
	}
	return out
}()

var confirmKeywords = []string{"invest now", "execute", "confirm", "do it", "deposit"}

// Extractor turns query text into a Context with a fixed set of independent
// rules.
type Extractor struct {
	table *PatternTable
}

func NewExtractor(table *PatternTable) *Extractor {
	return &Extractor{table: table}
}

// Extract never fails: a rule that finds nothing leaves its field absent.
// intent is recorded on the context as a tag only.
func (e *Extractor) Extract(text string, intent models.Intent) models.Context {
	lowered := strings.ToLower(text)
	ctx := models.Context{Intent: intent}

	if m := amountPattern.FindStringSubmatch(lowered); m != nil {
		ctx.Amount = strings.ReplaceAll(m[1], ",", "")
	}

	if m := timeframePattern.FindStringSubmatch(lowered); m != nil {
		if count, err := strconv.Atoi(m[1]); err == nil {
			ctx.Timeframe = &models.Timeframe{Count: count, Unit: strings.ToLower(m[2])}
		}
	}

	for _, r := range riskRules {
		if r.pattern.MatchString(lowered) {
			ctx.RiskTolerance = r.value
			break
		}
	}

	for _, r := range goalRules {
		if r.pattern.MatchString(lowered) {
			ctx.Goal = r.value
			break
		}
	}

	ctx.ESG = esgPattern.MatchString(lowered)
	ctx.IncludeHoldings = holdingsPattern.MatchString(lowered)
	ctx.IncludeExpenses = expensesPattern.MatchString(lowered)
	ctx.OverrideFixedExpenses = extractOverrides(lowered)
	ctx.RequiresMultipleAgents = len(e.table.Matches(lowered)) > 1
	ctx.Execute = containsAny(lowered, confirmKeywords)

	return ctx
}

// MatchedIntents returns every table intent matching text, in table order.
func (e *Extractor) MatchedIntents(text string) []models.Intent {
	return e.table.Matches(strings.ToLower(text))
}

func extractOverrides(text string) map[string]float64 {
	var overrides map[string]float64
	for _, name := range overrideExpenseNames {
		m := overridePatterns[name].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		if overrides == nil {
			overrides = make(map[string]float64)
		}
		overrides[titleCase(name)] = amount.InexactFloat64()
	}
	return overrides
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
