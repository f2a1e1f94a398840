package errors

import "fmt"

// Errno codes returned by the shim. Values follow the Emscripten numbering,
// not the host platform's.
const (
	ESUCCESS int32 = 0
	EBADF    int32 = 8
	EFAULT   int32 = 21
	EINVAL   int32 = 28
	ENOMEM   int32 = 48
	ENOSYS   int32 = 52
)

type errnoEntry struct {
	name string
	code int32
}

// errnoTable lists every symbolic name in canonical order. Aliases share a
// code; the first name listed for a code is the one Errno reports.
var errnoTable = []errnoEntry{
	{"EPERM", 63},
	{"ENOENT", 44},
	{"ESRCH", 71},
	{"EINTR", 27},
	{"EIO", 29},
	{"ENXIO", 60},
	{"E2BIG", 1},
	{"ENOEXEC", 45},
	{"EBADF", 8},
	{"ECHILD", 12},
	{"EAGAIN", 6},
	{"EWOULDBLOCK", 6},
	{"ENOMEM", 48},
	{"EACCES", 2},
	{"EFAULT", 21},
	{"ENOTBLK", 105},
	{"EBUSY", 10},
	{"EEXIST", 20},
	{"EXDEV", 75},
	{"ENODEV", 43},
	{"ENOTDIR", 54},
	{"EISDIR", 31},
	{"EINVAL", 28},
	{"ENFILE", 41},
	{"EMFILE", 33},
	{"ENOTTY", 59},
	{"ETXTBSY", 74},
	{"EFBIG", 22},
	{"ENOSPC", 51},
	{"ESPIPE", 70},
	{"EROFS", 69},
	{"EMLINK", 34},
	{"EPIPE", 64},
	{"EDOM", 18},
	{"ERANGE", 68},
	{"ENOMSG", 49},
	{"EIDRM", 24},
	{"ECHRNG", 106},
	{"EL2NSYNC", 156},
	{"EL3HLT", 107},
	{"EL3RST", 108},
	{"ELNRNG", 109},
	{"EUNATCH", 110},
	{"ENOCSI", 111},
	{"EL2HLT", 112},
	{"EDEADLK", 16},
	{"ENOLCK", 46},
	{"EBADE", 113},
	{"EBADR", 114},
	{"EXFULL", 115},
	{"ENOANO", 104},
	{"EBADRQC", 103},
	{"EBADSLT", 102},
	{"EDEADLOCK", 16},
	{"EBFONT", 101},
	{"ENOSTR", 100},
	{"ENODATA", 116},
	{"ETIME", 117},
	{"ENOSR", 118},
	{"ENONET", 119},
	{"ENOPKG", 120},
	{"EREMOTE", 121},
	{"ENOLINK", 47},
	{"EADV", 122},
	{"ESRMNT", 123},
	{"ECOMM", 124},
	{"EPROTO", 65},
	{"EMULTIHOP", 36},
	{"EDOTDOT", 125},
	{"EBADMSG", 9},
	{"ENOTUNIQ", 126},
	{"EBADFD", 127},
	{"EREMCHG", 128},
	{"ELIBACC", 129},
	{"ELIBBAD", 130},
	{"ELIBSCN", 131},
	{"ELIBMAX", 132},
	{"ELIBEXEC", 133},
	{"ENOSYS", 52},
	{"ENOTEMPTY", 55},
	{"ENAMETOOLONG", 37},
	{"ELOOP", 32},
	{"EOPNOTSUPP", 138},
	{"EPFNOSUPPORT", 139},
	{"ECONNRESET", 15},
	{"ENOBUFS", 42},
	{"EAFNOSUPPORT", 5},
	{"EPROTOTYPE", 67},
	{"ENOTSOCK", 57},
	{"ENOPROTOOPT", 50},
	{"ESHUTDOWN", 140},
	{"ECONNREFUSED", 14},
	{"EADDRINUSE", 3},
	{"ECONNABORTED", 13},
	{"ENETUNREACH", 40},
	{"ENETDOWN", 38},
	{"ETIMEDOUT", 73},
	{"EHOSTDOWN", 142},
	{"EHOSTUNREACH", 23},
	{"EINPROGRESS", 26},
	{"EALREADY", 7},
	{"EDESTADDRREQ", 17},
	{"EMSGSIZE", 35},
	{"EPROTONOSUPPORT", 66},
	{"ESOCKTNOSUPPORT", 137},
	{"EADDRNOTAVAIL", 4},
	{"ENETRESET", 39},
	{"EISCONN", 30},
	{"ENOTCONN", 53},
	{"ETOOMANYREFS", 141},
	{"EUSERS", 136},
	{"EDQUOT", 19},
	{"ESTALE", 72},
	{"ENOTSUP", 138},
	{"ENOMEDIUM", 148},
	{"EILSEQ", 25},
	{"EOVERFLOW", 61},
	{"ECANCELED", 11},
	{"ENOTRECOVERABLE", 56},
	{"EOWNERDEAD", 62},
	{"ESTRPIPE", 135},
}

var (
	errnoByName = make(map[string]int32, len(errnoTable))
	errnoByCode = make(map[int32]string, len(errnoTable))
)

func init() {
	for _, e := range errnoTable {
		errnoByName[e.name] = e.code
		if _, ok := errnoByCode[e.code]; !ok {
			errnoByCode[e.code] = e.name
		}
	}
}

// Errno returns the canonical symbolic name for code.
func Errno(code int32) (string, bool) {
	name, ok := errnoByCode[code]
	return name, ok
}

// ErrnoCode returns the numeric code for a symbolic name, aliases included.
func ErrnoCode(name string) (int32, bool) {
	code, ok := errnoByName[name]
	return code, ok
}

// ErrnoNames returns every symbolic name in table order.
func ErrnoNames() []string {
	names := make([]string, len(errnoTable))
	for i, e := range errnoTable {
		names[i] = e.name
	}
	return names
}

// ErrnoError is a soft failure reported to the guest as a numeric code.
type ErrnoError struct {
	Code    string
	Message string
	Errno   int32
}

// NewErrnoError builds an ErrnoError for code. describe, when non-nil,
// supplies the guest's strerror text.
func NewErrnoError(code int32, describe func(int32) string) *ErrnoError {
	e := &ErrnoError{Errno: code}
	e.Code, _ = Errno(code)
	if describe != nil {
		e.Message = describe(code)
	}
	return e
}

func (e *ErrnoError) Error() string {
	name := e.Code
	if name == "" {
		name = "unknown"
	}
	if e.Message != "" {
		return fmt.Sprintf("errno %d (%s): %s", e.Errno, name, e.Message)
	}
	return fmt.Sprintf("errno %d (%s)", e.Errno, name)
}
