package engine

// Exports of the Emscripten runtime surface.
const (
	ExportMemory         = "memory"
	ExportMalloc         = "malloc"
	ExportStrerror       = "strerror"
	ExportStackInit      = "emscripten_stack_init"
	ExportStackGetBase   = "emscripten_stack_get_base"
	ExportStackGetEnd    = "emscripten_stack_get_end"
	ExportSetStackLimits = "__set_stack_limits"
)

// requiredExports must be present on every guest.
var requiredExports = []string{
	ExportMalloc,
	ExportStackInit,
	ExportStackGetBase,
	ExportStackGetEnd,
	ExportSetStackLimits,
}

// importKey formats an import the way MissingImportsError expects.
func importKey(module, name string) string {
	return module + "#" + name
}
