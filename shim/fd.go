package shim

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/quickjs-bridge/errors"
)

// Standard descriptors. fd_write forwards anything below FdFirstFile.
const (
	FdStdin     uint32 = 0
	FdStdout    uint32 = 1
	FdStderr    uint32 = 2
	FdFirstFile uint32 = 3
)

// iovecSize is sizeof(struct __wasi_ciovec_t): u32 buf, u32 buf_len.
const iovecSize = 8

// FdWrite gathers iovcnt segments starting at iov and writes the total
// byte count at pnum. Every descriptor succeeds. Segments for descriptors
// below 3 are forwarded and logged; the rest are counted and dropped.
// Segments outside memory are skipped.
func (s *Shim) FdWrite(ctx context.Context, fd, iov, iovcnt, pnum uint32) int32 {
	var total uint32
	for i := uint32(0); i < iovcnt; i++ {
		v := s.views.Current()
		entry := iov + i*iovecSize
		ptr, ok1 := v.Data.Uint32(entry)
		n, ok2 := v.Data.Uint32(entry + 4)
		if !ok1 || !ok2 {
			break
		}
		seg, ok := v.Data.Bytes(ptr, n)
		if !ok {
			continue
		}
		if fd < FdFirstFile {
			s.emit(fd, seg)
		}
		total += n
	}

	if fd >= FdFirstFile && total > 0 {
		s.log.Debug("dropped guest output", zap.Uint32("fd", fd), zap.Uint32("bytes", total))
	}
	if !s.views.Current().Data.PutUint32(pnum, total) {
		return s.fail(ctx, "fd_write", errors.EFAULT)
	}
	return errors.ESUCCESS
}

func (s *Shim) emit(fd uint32, seg []byte) {
	if len(seg) == 0 {
		return
	}
	w := s.cfg.Stdout
	if fd == FdStderr {
		w = s.cfg.Stderr
	}
	if w != nil {
		if _, err := w.Write(seg); err != nil {
			s.log.Warn("guest output write failed", zap.Uint32("fd", fd), zap.Error(err))
		}
	}
	s.cfg.Metrics.RecordOutput(strconv.FormatUint(uint64(fd), 10), len(seg))

	text := string(seg)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimRight(text, " \t\r\n")
	if text == "" {
		return
	}
	if fd == FdStderr {
		s.log.Warn(text, zap.Uint32("fd", fd))
	} else {
		s.log.Info(text, zap.Uint32("fd", fd))
	}
}

// EnvironSizesGet reports an empty environment.
func (s *Shim) EnvironSizesGet(ctx context.Context, pcount, pbufSize uint32) int32 {
	v := s.views.Current()
	if !v.Data.PutUint32(pcount, 0) || !v.Data.PutUint32(pbufSize, 0) {
		return s.fail(ctx, "environ_sizes_get", errors.EFAULT)
	}
	return errors.ESUCCESS
}

func (s *Shim) fdWrite(ctx context.Context, _ api.Module, stack []uint64) {
	rc := s.FdWrite(ctx, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]), api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	stack[0] = api.EncodeI32(rc)
}

func (s *Shim) fdSeek(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(errors.ESUCCESS)
}

func (s *Shim) fdClose(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(errors.ESUCCESS)
}

func (s *Shim) environSizesGet(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(s.EnvironSizesGet(ctx, api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
}

func (s *Shim) environGet(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(errors.ESUCCESS)
}

// unlinkat always rejects; no filesystem is modeled.
func (s *Shim) syscallUnlinkat(ctx context.Context, _ api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(-s.fail(ctx, "__syscall_unlinkat", errors.EINVAL))
}
