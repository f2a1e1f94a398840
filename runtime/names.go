package runtime

// Guest exports the facade drives. Every parameter and result is a 64-bit
// boundary handle.
const (
	ExportEngineNew      = "engine_new"
	ExportEngineCleanup  = "engine_cleanup"
	ExportHasTimers      = "engine_has_timers"
	ExportHasPendingJobs = "engine_has_pending_jobs"
	ExportEval           = "engine_js_eval"
	ExportCreateWindow   = "engine_create_window"
	ExportDestroyWindow  = "engine_destroy_window"
	ExportUseJQuery      = "engine_use_jquery"
	ExportEvalInWindow   = "engine_browser_eval"
	ExportLoopStep       = "engine_loop_step"
)

// facadeExports must all be present for a runtime to load.
var facadeExports = []string{
	ExportEngineNew,
	ExportEngineCleanup,
	ExportHasTimers,
	ExportHasPendingJobs,
	ExportEval,
	ExportCreateWindow,
	ExportDestroyWindow,
	ExportUseJQuery,
	ExportEvalInWindow,
}
