package eligibility

import (
	"fmt"
	"sort"
	"time"

	"divehub/internal/domain/member"
)

// Well-known snapshot attribute names. Organizers reference these when
// building rules; the snapshot builder populates them.
const (
	AttrDivingLevel      = "diving_level"
	AttrFreedivingLevel  = "freediving_level"
	AttrAge              = "age"
	AttrInsured          = "insured"
	AttrCACIValid        = "caci_valid"
	AttrIsDiver          = "is_diver"
	AttrIsFreediver      = "is_freediver"
	AttrIsPilot          = "is_pilot"
	AttrIsInstructor     = "is_instructor"
	AttrIsDivingDirector = "is_diving_director"
)

// LevelScale resolves a level name to its ordinal rank.
type LevelScale func(string) (int, bool)

// Decision is the outcome of evaluating an event's rules against a
// participant snapshot.
type Decision struct {
	Eligible   bool
	FailedRule *Rule  // first failing rule, nil when eligible
	Reason     string // user-facing rejection message, "" when eligible
}

// Error represents an eligibility rejection carrying the failing rule's
// message for direct user display.
type Error struct {
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Reason
}

// Evaluator applies an event's active rules to a participant snapshot.
// Evaluation never panics or errors on missing or malformed data: the
// affected rule simply fails.
type Evaluator struct {
	levelScales map[string]LevelScale
}

// NewEvaluator creates an Evaluator with the club's level scales registered.
// PRE: none
// POST: Returns an evaluator that orders diving and freediving levels
func NewEvaluator() *Evaluator {
	return &Evaluator{
		levelScales: map[string]LevelScale{
			AttrDivingLevel:     member.DivingLevelRank,
			AttrFreedivingLevel: member.FreedivingLevelRank,
		},
	}
}

// Evaluate runs the active rules in ascending display order and returns the
// first rejection, or acceptance when every active rule passes.
// PRE: snapshot may be nil (every attribute lookup then fails the rule)
// POST: Decision.FailedRule set iff Eligible is false
// INVARIANT: inactive rules are skipped; evaluation short-circuits on first failure
func (ev *Evaluator) Evaluate(snapshot Snapshot, rules []Rule) Decision {
	ordered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	for i := range ordered {
		r := ordered[i]
		if !ev.rulePasses(snapshot, r) {
			return Decision{
				Eligible:   false,
				FailedRule: &ordered[i],
				Reason:     rejectionMessage(r),
			}
		}
	}
	return Decision{Eligible: true}
}

// rulePasses applies one rule to the snapshot. Missing attributes and type
// mismatches fail the rule rather than erroring.
func (ev *Evaluator) rulePasses(snapshot Snapshot, r Rule) bool {
	v, ok := snapshot[r.Attribute]
	if !ok {
		return false
	}

	switch r.Operator {
	case OpEqual:
		return v.equalsRaw(r.RawValue)
	case OpNotEqual:
		return !v.equalsRaw(r.RawValue)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		cmp, comparable := v.compareRaw(r.RawValue, ev.levelScales[r.Attribute])
		if !comparable {
			return false
		}
		switch r.Operator {
		case OpLess:
			return cmp < 0
		case OpLessEqual:
			return cmp <= 0
		case OpGreater:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case OpIn:
		for _, raw := range r.listValues() {
			if v.equalsRaw(raw) {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, raw := range r.listValues() {
			if v.equalsRaw(raw) {
				return false
			}
		}
		return true
	}
	// unknown operator: fail closed
	return false
}

// rejectionMessage returns the rule's configured message, falling back to a
// generated one so rejections are never blank.
func rejectionMessage(r Rule) string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return fmt.Sprintf("requirement not met: %s %s %s", r.Attribute, r.Operator, r.RawValue)
}

// BuildSnapshot assembles the typed attribute map for a member.
// PRE: m has been validated; caciValid reflects the member's current
// medical certificate status
// POST: Returns a snapshot containing every well-known attribute
func BuildSnapshot(m member.Member, caciValid bool, now time.Time) Snapshot {
	dRank, _ := member.DivingLevelRank(m.DivingLevel)
	fRank, _ := member.FreedivingLevelRank(m.FreedivingLevel)
	return Snapshot{
		AttrDivingLevel:      Level(m.DivingLevel, dRank),
		AttrFreedivingLevel:  Level(m.FreedivingLevel, fRank),
		AttrAge:              Number(float64(m.Age(now))),
		AttrInsured:          Bool(m.Insured),
		AttrCACIValid:        Bool(caciValid),
		AttrIsDiver:          Bool(m.IsDiver),
		AttrIsFreediver:      Bool(m.IsFreediver),
		AttrIsPilot:          Bool(m.IsPilot),
		AttrIsInstructor:     Bool(m.IsInstructor),
		AttrIsDivingDirector: Bool(m.IsDivingDirector),
	}
}
