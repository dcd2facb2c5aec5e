package events

const (
	StreamName   = "GEMBA_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectDescriptorUpserted(id string) string { return "lean.descriptor." + id + ".upserted" }
func SubjectDescriptorDeleted(id string) string  { return "lean.descriptor." + id + ".deleted" }
func SubjectDescriptorRestored(id string) string { return "lean.descriptor." + id + ".restored" }

func SubjectSchemeCreated(id string) string        { return "lean.scheme." + id + ".created" }
func SubjectSchemeWeightsApplied(id string) string { return "lean.scheme." + id + ".weights_applied" }
func SubjectSchemeDefaultSet(id string) string     { return "lean.scheme." + id + ".default_set" }
func SubjectSchemeDeleted(id string) string        { return "lean.scheme." + id + ".deleted" }

func SubjectAssessmentCreated(id string) string   { return "lean.assessment." + id + ".created" }
func SubjectAssessmentScored(id string) string    { return "lean.assessment." + id + ".scored" }
func SubjectAssessmentSubmitted(id string) string { return "lean.assessment." + id + ".submitted" }
func SubjectAssessmentReviewed(id string) string  { return "lean.assessment." + id + ".reviewed" }
