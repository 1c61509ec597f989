package enums

// ActivityAction is the verb recorded in activity_logs.
type ActivityAction string

const (
	ActivityScheduledDividendGenerated ActivityAction = "scheduled_dividend.generated"
	ActivityScheduledDividendFailed    ActivityAction = "scheduled_dividend.failed"
	ActivityScheduleAutoPaused         ActivityAction = "schedule.auto_paused"
	ActivityScheduleCompleted          ActivityAction = "schedule.completed"
	ActivityScheduleCreated            ActivityAction = "schedule.created"
	ActivityScheduleUpdated            ActivityAction = "schedule.updated"
	ActivitySchedulePaused             ActivityAction = "schedule.paused"
	ActivityScheduleResumed            ActivityAction = "schedule.resumed"
	ActivityScheduleDeleted            ActivityAction = "schedule.deleted"
)
