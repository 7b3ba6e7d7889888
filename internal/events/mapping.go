package events

// Upstream play type codes the diff engine understands.
// Anything else is ignored (not stored, not retried).
const (
	CodeGoal        = 505
	CodePenalty     = 509
	CodePeriodStart = 520
	CodePeriodEnd   = 521
	CodeGameEnd     = 524
)

// MapTypeCode maps an upstream play type code to a domain event type.
//
// The period-start code is ambiguous upstream: period 1 means the game
// itself started. That tie-break is fixed, not configurable.
func MapTypeCode(typeCode, period int) (Type, bool) {
	switch typeCode {
	case CodeGoal:
		return GoalScored, true
	case CodePenalty:
		return Penalty, true
	case CodePeriodStart:
		if period == 1 {
			return GameStart, true
		}
		return PeriodStart, true
	case CodePeriodEnd:
		return PeriodEnd, true
	case CodeGameEnd:
		return GameEnd, true
	default:
		return "", false
	}
}
