package notifications

const (
	KindLeaveApprove  = "leaveApprove"
	KindLeaveReject   = "leaveReject"
	KindLeaveReminder = "leaveReminder"
	KindLeaveLapsed   = "leaveLapsed"
)
