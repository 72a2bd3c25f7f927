package claims

// autoApproveDivisor bounds the low-risk fast path to a twentieth of
// coverage.
const autoApproveDivisor = 20

// Triage maps an AI assessment onto a claim status. The rules are ordered
// and first-match-wins; a fraud flag dominates everything else.
func Triage(a Assessment, coverage int64) Status {
	switch {
	case a.FraudFlag:
		return StatusAIRejectedNeedsReview
	case a.Confidence >= 90 && a.Payout > 0 && a.Payout <= coverage/autoApproveDivisor:
		return StatusAIApprovedLowRisk
	case a.Confidence >= 75 && a.Payout > 0:
		return StatusAIApprovedNeedsReview
	case a.Confidence < 50 || a.Payout == 0:
		return StatusAIRejectedNeedsReview
	default:
		return StatusAINeedsHumanReview
	}
}
