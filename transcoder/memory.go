package transcoder

import (
	quickjsbridge "github.com/wippyai/quickjs-bridge"
)

type Memory = quickjsbridge.Memory
type Allocator = quickjsbridge.Allocator
