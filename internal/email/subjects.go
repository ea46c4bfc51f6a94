package email

const (
	subjectSLAAlertFmt     = "First response overdue: %s"
	subjectLeadAssignedFmt = "New lead assigned: %s"
	subjectDealWonFmt      = "Deal won: %s"
)
