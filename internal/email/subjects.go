package email

const (
	subjectLeadSubmittedFmt = "New lead submitted: %s"
	subjectLeadApprovedFmt  = "Your lead was approved: %s"
	subjectLeadRejectedFmt  = "Your lead was not accepted: %s"
	subjectLeadSoldFmt      = "Your lead sold: %s"
	subjectLeadUpdatedFmt   = "Lead update: %s"
	subjectPayoutSent       = "Your commission payout is on its way"
)
