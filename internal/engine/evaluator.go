// Package engine implements transaction categorization: condition
// evaluation, priority-ordered rule application, and the preview harness.
package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/florijnhq/florijn/internal/common"
	"github.com/florijnhq/florijn/internal/model"
	"github.com/florijnhq/florijn/internal/operator"
)

// exactMatchConfidence is the fixed score for amount, date, and enum leaves
// and for negated matches. These comparisons are exact, not fuzzy.
const exactMatchConfidence = 0.95

// Evaluator decides rule matches. Regex programs are compiled once per
// pattern and reused for the evaluator's lifetime, so a single evaluator
// should serve a whole batch.
type Evaluator struct {
	regexes *operator.RegexCache
}

// New creates an Evaluator with an empty regex cache.
func New() *Evaluator {
	return &Evaluator{regexes: operator.NewRegexCache()}
}

// evalResult carries the outcome of one condition evaluation. Apply reads
// only Matched; the preview harness also reads Confidence and Details, so
// both share a single evaluation path.
type evalResult struct {
	Matched    bool
	Confidence float64
	Details    []string
}

// EvaluateRule decides whether a single rule matches a transaction. A rule
// whose tier disagrees with its condition representation fails closed with
// ErrTierMismatch.
func (e *Evaluator) EvaluateRule(rule *model.Rule, txn *model.Transaction) (bool, error) {
	res, err := e.evaluateRule(rule, txn)
	if err != nil {
		return false, err
	}
	return res.Matched, nil
}

func (e *Evaluator) evaluateRule(rule *model.Rule, txn *model.Transaction) (evalResult, error) {
	if !rule.TierConsistent() {
		return evalResult{}, fmt.Errorf("%w: rule %q declares %s tier",
			common.ErrTierMismatch, rule.Name, rule.Tier)
	}

	switch rule.Tier {
	case model.TierSimple:
		return e.evaluateList(rule.Conditions, txn)
	case model.TierAdvanced:
		return e.evaluateNode(rule.ConditionTree, txn)
	}

	return evalResult{}, fmt.Errorf("%w: rule %q has tier %q",
		common.ErrTierMismatch, rule.Name, rule.Tier)
}

// evaluateList folds conditions left to right using each condition's own
// connector against the running aggregate. This is strictly
// left-associative with no grouping, by design; it is not tree semantics.
func (e *Evaluator) evaluateList(list *model.ConditionList, txn *model.Transaction) (evalResult, error) {
	// An empty condition set never matches: a misconfigured rule must not
	// categorize every transaction by omission.
	if list.Empty() {
		return evalResult{}, nil
	}

	var agg evalResult
	for i, entry := range list.Conditions {
		leaf, err := e.evaluateLeaf(&entry.Condition, txn)
		if err != nil {
			return evalResult{}, err
		}

		if i == 0 {
			agg = leaf
			continue
		}

		switch entry.Connector {
		case model.ConnectorAnd:
			agg = combineAnd(agg, leaf)
		case model.ConnectorOr:
			agg = combineOr(agg, leaf)
		default:
			return evalResult{}, fmt.Errorf("%w: connector %q",
				common.ErrInvalidRule, entry.Connector)
		}
	}

	return agg, nil
}

// evaluateNode evaluates a condition tree node. Children run left to right;
// AND short-circuits on the first false child, OR on the first true child.
// The node's own negation applies to the aggregate.
func (e *Evaluator) evaluateNode(node *model.ConditionNode, txn *model.Transaction) (evalResult, error) {
	if node.Empty() {
		return evalResult{}, nil
	}

	if node.IsLeaf() {
		res, err := e.evaluateLeaf(node.Leaf, txn)
		if err != nil {
			return evalResult{}, err
		}
		// Node negation applies on top of the leaf's own Negated flag; a
		// doubly negated leaf is the plain condition again.
		if node.Negated {
			res = negate(res)
		}
		return res, nil
	}

	var agg evalResult
	switch node.Connector {
	case model.ConnectorAnd:
		agg = evalResult{Matched: true, Confidence: 1}
		for _, child := range node.Children {
			res, err := e.evaluateNode(child, txn)
			if err != nil {
				return evalResult{}, err
			}
			agg = combineAnd(agg, res)
			if !agg.Matched {
				break
			}
		}
	case model.ConnectorOr:
		for _, child := range node.Children {
			res, err := e.evaluateNode(child, txn)
			if err != nil {
				return evalResult{}, err
			}
			agg = combineOr(agg, res)
			if agg.Matched {
				break
			}
		}
	default:
		return evalResult{}, fmt.Errorf("%w: connector %q", common.ErrInvalidRule, node.Connector)
	}

	if node.Negated {
		agg = negate(agg)
	}

	return agg, nil
}

// evaluateLeaf resolves the field value(s) from the transaction, applies the
// operator, then applies the leaf's own negation.
func (e *Evaluator) evaluateLeaf(cond *model.Condition, txn *model.Transaction) (evalResult, error) {
	if err := operator.CheckPair(cond.Field, cond.Operator); err != nil {
		return evalResult{}, err
	}

	var res evalResult
	var err error

	switch cond.Field.Kind() {
	case operator.KindText:
		res, err = e.evaluateTextLeaf(cond, txn)
	case operator.KindAmount:
		var matched bool
		matched, err = operator.EvaluateAmount(cond.Operator, txn.Amount, cond.Value)
		res = exactLeafResult(cond, matched, txn.Amount.StringFixed(2))
	case operator.KindDate:
		var matched bool
		matched, err = operator.EvaluateDate(cond.Operator, txn.Date, cond.Value)
		res = exactLeafResult(cond, matched, txn.Date.Format(operator.DateLayout))
	case operator.KindEnum:
		fieldValue := string(txn.Type)
		if cond.Field == operator.FieldCategory {
			fieldValue = txn.Category
		}
		var matched bool
		matched, err = operator.EvaluateEnum(cond.Operator, fieldValue, cond.Value)
		res = exactLeafResult(cond, matched, fieldValue)
	}
	if err != nil {
		return evalResult{}, err
	}

	if cond.Negated {
		res = negate(res)
		if res.Matched {
			res.Details = []string{fmt.Sprintf("%s not %s %q", cond.Field, cond.Operator, cond.Value)}
		}
	}

	return res, nil
}

// evaluateTextLeaf tests each candidate field individually and matches if
// any one of them does. The fields are never concatenated: substring
// bridging across field boundaries must not produce false positives.
func (e *Evaluator) evaluateTextLeaf(cond *model.Condition, txn *model.Transaction) (evalResult, error) {
	candidates := textFieldValues(cond.Field, txn)

	var res evalResult
	for _, fieldValue := range candidates {
		matched, err := e.matchText(cond, fieldValue)
		if err != nil {
			return evalResult{}, err
		}
		if !matched {
			continue
		}

		res.Matched = true
		// Confidence scales with how much of the field the pattern covers;
		// across candidate fields the best-covered match wins.
		if conf := textConfidence(cond.Value, fieldValue); conf > res.Confidence {
			res.Confidence = conf
			res.Details = []string{fmt.Sprintf("%s %s %q in %q",
				cond.Field, cond.Operator, cond.Value, fieldValue)}
		}
	}

	return res, nil
}

func (e *Evaluator) matchText(cond *model.Condition, fieldValue string) (bool, error) {
	if cond.Operator == operator.OpRegex {
		re, err := e.regexes.Get(cond.Value)
		if err != nil {
			return false, err
		}
		return re.MatchString(fieldValue), nil
	}
	return operator.EvaluateText(cond.Operator, fieldValue, cond.Value)
}

func textFieldValues(f operator.Field, txn *model.Transaction) []string {
	switch f {
	case operator.FieldDescription:
		return txn.DescriptionFields()
	case operator.FieldCounterParty:
		return []string{txn.CounterParty}
	case operator.FieldIBAN:
		return []string{txn.CounterPartyIBAN}
	case operator.FieldAnyField:
		fields := txn.DescriptionFields()
		if txn.CounterParty != "" {
			fields = append(fields, txn.CounterParty)
		}
		if txn.CounterPartyIBAN != "" {
			fields = append(fields, txn.CounterPartyIBAN)
		}
		return fields
	}
	return nil
}

// textConfidence is the overlap ratio of pattern length to matched field
// length. Longer, more specific matches score higher.
func textConfidence(pattern, fieldValue string) float64 {
	fieldLen := utf8.RuneCountInString(fieldValue)
	if fieldLen == 0 {
		return 0
	}
	ratio := float64(utf8.RuneCountInString(pattern)) / float64(fieldLen)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

func exactLeafResult(cond *model.Condition, matched bool, fieldValue string) evalResult {
	if !matched {
		return evalResult{}
	}
	return evalResult{
		Matched:    true,
		Confidence: exactMatchConfidence,
		Details: []string{fmt.Sprintf("%s %s %q (value %s)",
			cond.Field, cond.Operator, cond.Value, fieldValue)},
	}
}

func combineAnd(a, b evalResult) evalResult {
	if !a.Matched || !b.Matched {
		return evalResult{}
	}
	out := evalResult{Matched: true, Confidence: a.Confidence}
	if b.Confidence < out.Confidence {
		out.Confidence = b.Confidence
	}
	out.Details = append(append([]string{}, a.Details...), b.Details...)
	return out
}

func combineOr(a, b evalResult) evalResult {
	switch {
	case a.Matched && b.Matched:
		out := evalResult{Matched: true, Confidence: a.Confidence}
		if b.Confidence > out.Confidence {
			out.Confidence = b.Confidence
		}
		out.Details = append(append([]string{}, a.Details...), b.Details...)
		return out
	case a.Matched:
		return a
	case b.Matched:
		return b
	}
	return evalResult{}
}

func negate(res evalResult) evalResult {
	if res.Matched {
		return evalResult{}
	}
	return evalResult{Matched: true, Confidence: exactMatchConfidence}
}

func joinDetails(details []string) string {
	return strings.Join(details, "; ")
}
