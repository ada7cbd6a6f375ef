package backtrace

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/fyrsmithlabs/debugredirect/internal/sanitize"
)

// DefaultLimit is used when Options.Limit is not positive.
const DefaultLimit = 15

// maxStackDepth bounds how many program counters are read per capture.
const maxStackDepth = 128

var (
	selfPackage = reflect.TypeOf(Frame{}).PkgPath()

	// ModuleNamespace is the import path prefix shared by this module's packages.
	ModuleNamespace = strings.TrimSuffix(selfPackage, "/internal/backtrace")

	closureSegment = regexp.MustCompile(`^(func\d+|\d+)$`)
	typeParams     = regexp.MustCompile(`\[[^\]]*\]`)
)

// Options controls a single capture.
type Options struct {
	// Limit caps the number of retained frames.
	Limit int
	// WithArgs attaches sanitized arguments from recorded calls.
	WithArgs bool
	// Sanitizer reduces arguments. Required when WithArgs is set.
	Sanitizer *sanitize.Sanitizer
}

// Capturer walks the stack and reduces frames. It holds no per-capture state
// and is safe for concurrent use.
type Capturer struct {
	root      string
	allow     []string
	namespace string
	helpers   map[string]bool
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithRoot makes frame file paths relative to root.
func WithRoot(root string) Option {
	return func(c *Capturer) {
		if root != "" {
			c.root = filepath.Clean(root) + string(filepath.Separator)
		}
	}
}

// WithObjectAllowList sets the class prefixes whose receivers may be reported.
func WithObjectAllowList(prefixes ...string) Option {
	return func(c *Capturer) {
		c.allow = append(c.allow, prefixes...)
	}
}

// WithHelpers names functions of this module that are capture plumbing and
// must not appear in traces.
func WithHelpers(names ...string) Option {
	return func(c *Capturer) {
		for _, n := range names {
			c.helpers[n] = true
		}
	}
}

// WithNamespace overrides the import path prefix helpers are matched under.
func WithNamespace(ns string) Option {
	return func(c *Capturer) {
		c.namespace = ns
	}
}

// NewCapturer creates a Capturer.
func NewCapturer(opts ...Option) *Capturer {
	c := &Capturer{
		namespace: ModuleNamespace,
		helpers:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture returns the caller's stack, innermost first, without this
// package's frames, runtime internals or registered helpers.
// A panic while walking the stack is returned as an error.
func (c *Capturer) Capture(ctx context.Context, opts Options) (frames Frames, err error) {
	defer func() {
		if r := recover(); r != nil {
			frames = nil
			err = fmt.Errorf("capturing stack: %v", r)
		}
	}()

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if opts.WithArgs && opts.Sanitizer == nil {
		return nil, fmt.Errorf("capturing stack: sanitizer required with arguments")
	}

	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(1, pcs)
	iter := runtime.CallersFrames(pcs[:n])

	pending := append([]Call(nil), callsFrom(ctx)...)
	frames = make(Frames, 0, limit)

	for len(frames) < limit {
		rf, more := iter.Next()
		if rf.Function != "" {
			pkg, class, fn := splitSymbol(rf.Function)
			if !c.skip(pkg, fn) {
				f := Frame{
					File:     c.relative(rf.File),
					Line:     rf.Line,
					Function: fn,
					Class:    class,
				}
				pending = c.attach(&f, pending, opts)
				frames = append(frames, f)
			}
		}
		if !more {
			break
		}
	}

	return frames, nil
}

func (c *Capturer) skip(pkg, fn string) bool {
	if pkg == selfPackage || pkg == "runtime" || strings.HasPrefix(pkg, "runtime/") {
		return true
	}
	if c.namespace == "" || !strings.HasPrefix(pkg, c.namespace) {
		return false
	}
	return c.helpers[baseName(fn)]
}

// attach copies args and receiver from the first pending call that matches f
// and returns the calls still unmatched.
func (c *Capturer) attach(f *Frame, pending []Call, opts Options) []Call {
	for i, call := range pending {
		if call.Class != f.Class || call.Function != f.Function {
			continue
		}
		if opts.WithArgs {
			f.Args = opts.Sanitizer.SanitizeAll(call.Args)
		}
		if call.Object != nil && f.Class != "" && sanitize.HasPrefix(f.Class, c.allow) {
			f.Object = &ObjectRef{
				Class: sanitize.ClassOf(call.Object),
				ID:    sanitize.IDOf(call.Object),
			}
		}
		return append(pending[:i:i], pending[i+1:]...)
	}
	return pending
}

func (c *Capturer) relative(file string) string {
	if file == "" {
		return InternalFile
	}
	if c.root != "" && strings.HasPrefix(file, c.root) {
		return strings.TrimPrefix(file, c.root)
	}
	return file
}

// splitSymbol breaks a runtime function symbol into package, receiver class
// and function name:
//
//	example.com/app/pkg.(*Server).Handle.func1 -> example.com/app/pkg, example.com/app/pkg.Server, Handle.func1
//	net/http.HandlerFunc.ServeHTTP            -> net/http, net/http.HandlerFunc, ServeHTTP
//	example.com/app/pkg.Run.func2             -> example.com/app/pkg, "", example.com/app/pkg.Run.func2
func splitSymbol(symbol string) (pkg, class, fn string) {
	symbol = typeParams.ReplaceAllString(symbol, "")

	slash := strings.LastIndex(symbol, "/")
	dot := strings.Index(symbol[slash+1:], ".")
	if dot < 0 {
		return "", "", symbol
	}
	pkg = symbol[:slash+1+dot]
	rest := symbol[slash+1+dot+1:]

	if strings.HasPrefix(rest, "(*") {
		if end := strings.Index(rest, ")."); end > 0 {
			return pkg, pkg + "." + rest[2:end], rest[end+2:]
		}
	}

	parts := strings.SplitN(rest, ".", 2)
	if len(parts) == 2 && !closureSegment.MatchString(strings.SplitN(parts[1], ".", 2)[0]) {
		return pkg, pkg + "." + parts[0], parts[1]
	}
	return pkg, "", pkg + "." + rest
}

// baseName strips closure suffixes and any package qualifier from fn.
func baseName(fn string) string {
	if slash := strings.LastIndex(fn, "/"); slash >= 0 {
		fn = fn[slash+1:]
		if dot := strings.Index(fn, "."); dot >= 0 {
			fn = fn[dot+1:]
		}
	}
	if dot := strings.Index(fn, "."); dot >= 0 {
		fn = fn[:dot]
	}
	return fn
}
