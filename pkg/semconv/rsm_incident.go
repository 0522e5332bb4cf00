package semconv

const (
	AttrEntityID     = "rsm.entity.id"
	AttrTriggerID    = "rsm.trigger.id"
	AttrEventID      = "rsm.event.id"
	AttrCheckType    = "rsm.check.type"
	AttrDisposition  = "rsm.incident.disposition"
	AttrRows         = "rsm.incident.rows"
	AttrFailedCycles = "rsm.incident.failed_cycles"
	AttrDowntimeSec  = "rsm.incident.downtime_seconds"
	AttrAvailability = "rsm.incident.availability"
	AttrWindowFrom   = "rsm.window.from"
	AttrWindowTo     = "rsm.window.to"
	AttrReportID     = "rsm.report.id"
)
