package ape

import (
	"errors"
	"io"
	"time"
)

var errNoFileWriteHook = errors.New("ape: no file-write hook installed (call SetFileWrite first)")

// Context is the embedding API's entry point: one owns a heap, a
// compiler that accumulates state across Execute calls (so a REPL's
// successive lines share constants/symbols/globals), and the VM that
// runs what the compiler produces. Grounded on spec.md §6's C-shaped
// surface (make/destroy, set_*_write, set_timeout, execute), ported to
// Go idiom as methods on a struct rather than opaque handles.
type Context struct {
	heap     *heap
	globals  *globalStore
	errs     *ErrorList
	compiler *Compiler
	vm       *VM
	config   *Config

	fileWrite func(path string, data []byte) (int, error)
}

// New creates a Context with its own heap, globals, error queue,
// compiler and VM wired together, the default builtins installed, and
// config defaults per NewConfig.
func New() *Context {
	h := newHeap()
	globals := newGlobalStore()
	errs := newErrorList()
	installBuiltins(globals, h)

	cfg := NewConfig()
	h.SetThreshold(cfg.GetInt("gc.threshold"))

	compiler := NewCompiler(h, globals, errs, cfg.GetBool("repl_mode"))
	vm := NewVM(h, globals, errs, compiler.Constants(), compiler.ModuleGlobalCount())
	if d := cfg.GetDuration("execution.max_time"); d > 0 {
		vm.SetMaxExecutionTime(d)
	}

	return &Context{heap: h, globals: globals, errs: errs, compiler: compiler, vm: vm, config: cfg}
}

// Config exposes the context's settings bag for direct inspection; most
// callers should prefer the typed Set* methods below instead.
func (ctx *Context) Config() *Config { return ctx.config }

// SetStdoutWrite redirects the "print" builtin's output (spec.md §6's
// set_stdout_write hook).
func (ctx *Context) SetStdoutWrite(w io.Writer) {
	ctx.vm.SetStdout(w)
}

// SetFileRead overrides how `import "path"` resolves source text
// (spec.md §6's set_file_read hook). For an import, fn receives the
// resolved absolute path with ".ape" appended; for ExecuteFile and
// DisassembleFile, the path as given. It returns the file's contents.
func (ctx *Context) SetFileRead(fn func(path string) (string, error)) {
	readImportSource = fn
}

// SetFileWrite installs the host's write_file hook (spec.md §6's
// set_file_write); no builtin currently calls it, but native functions
// a host installs via SetNativeFunction can reach it through WriteFile.
func (ctx *Context) SetFileWrite(fn func(path string, data []byte) (int, error)) {
	ctx.fileWrite = fn
}

// WriteFile invokes the host's write_file hook, if one was installed.
func (ctx *Context) WriteFile(path string, data []byte) (int, error) {
	if ctx.fileWrite == nil {
		return 0, errNoFileWriteHook
	}
	return ctx.fileWrite(path, data)
}

// SetTimeout sets the cooperative wall-clock execution ceiling; a
// negative or zero duration disables it (spec.md §6's set_timeout,
// ms < 0 disables).
func (ctx *Context) SetTimeout(d time.Duration) {
	ctx.config.SetDuration("execution.max_time", d)
	ctx.vm.SetMaxExecutionTime(d)
}

// SetReplMode toggles the parser behavior spec.md §6 calls out for a
// leading `{` (statement block vs. map literal at top level).
func (ctx *Context) SetReplMode(on bool) {
	ctx.config.SetBool("repl_mode", on)
	ctx.compiler.replMode = on
}

// SetNativeFunction installs a callable host global under name.
func (ctx *Context) SetNativeFunction(name string, fn NativeFunction) {
	nf := &nativeFunctionData{name: name, fn: fn}
	ctx.globals.define(name, objectValue(TypeNativeFunction, ctx.heap.allocNativeFunction(nf)))
}

// SetGlobalConstant installs a non-reassignable host global under name.
// Reassignability is enforced at compile time via ScopeApeGlobal symbols
// never being marked Assignable; the value itself is ordinary.
func (ctx *Context) SetGlobalConstant(name string, v Value) {
	ctx.globals.define(name, v)
}

// GetObject resolves a module-global or host-global by name, returning
// (Null, false) if nothing by that name has been defined.
func (ctx *Context) GetObject(name string) (Value, bool) {
	if idx, ok := ctx.globals.indexOf(name); ok {
		return ctx.globals.get(idx), true
	}
	if sym, ok := ctx.compiler.symbols().Resolve(name); ok && sym.Scope == ScopeModuleGlobal {
		if sym.Index >= 0 && sym.Index < len(ctx.vm.moduleGlobals) {
			return ctx.vm.moduleGlobals[sym.Index], true
		}
	}
	return Null, false
}

// Execute compiles and runs source against this context's accumulated
// compiler/VM state, the same incremental-compile shape a REPL needs:
// each call's new constants, module globals and bytecode build on the
// last. It returns the value of the last top-level expression statement
// executed.
func (ctx *Context) Execute(source string) (Value, error) {
	return ctx.execute("<input>", source)
}

// ExecuteFile reads path through the configured file-read hook (the
// filesystem, by default) and executes its contents.
func (ctx *Context) ExecuteFile(path string) (Value, error) {
	source, err := readImportSource(path)
	if err != nil {
		return Null, err
	}
	return ctx.execute(path, source)
}

func (ctx *Context) execute(filename, source string) (Value, error) {
	top, err := ctx.compiler.Compile(filename, source)
	if err != nil {
		return Null, err
	}
	ctx.vm.SetConstants(ctx.compiler.Constants())
	ctx.vm.GrowModuleGlobals(ctx.compiler.ModuleGlobalCount())
	return ctx.vm.Run(top)
}

// Errors exposes the shared, bounded error queue accumulated across
// every Execute/ExecuteFile call on this context.
func (ctx *Context) Errors() *ErrorList { return ctx.errs }

// --- value constructors ---

func (ctx *Context) NewNumber(n float64) Value { return NumberValue(n) }
func (ctx *Context) NewBool(b bool) Value      { return BoolValue(b) }
func (ctx *Context) NewNull() Value            { return Null }

func (ctx *Context) NewString(s string) Value {
	return objectValue(TypeString, ctx.heap.allocString(s))
}

func (ctx *Context) NewArray(elems []Value) Value {
	return objectValue(TypeArray, ctx.heap.allocArray(append([]Value(nil), elems...)))
}

func (ctx *Context) NewMap() Value {
	return objectValue(TypeMap, ctx.heap.allocMap())
}

// NewNativeFunction wraps fn as a first-class callable Value, without
// installing it as a global — useful for passing a host callback as a
// map value or array element.
func (ctx *Context) NewNativeFunction(name string, fn NativeFunction) Value {
	return objectValue(TypeNativeFunction, ctx.heap.allocNativeFunction(&nativeFunctionData{name: name, fn: fn}))
}

// Call invokes a script- or native-function Value with args, the
// embedding API's path for a host to call back into a value it holds
// (e.g. a callback stored in a map). See VM.Call's doc comment for the
// reentrancy limitation this inherits from original_source/imp.c.
func (ctx *Context) Call(callee Value, args []Value) (Value, error) {
	return ctx.vm.Call(callee, args)
}

// DisassembleFile compiles path in a throwaway Context and returns its
// top-level function's disassembled bytecode, for the `disasm` CLI
// command. It does not run the program.
func DisassembleFile(path string) (string, error) {
	source, err := readImportSource(path)
	if err != nil {
		return "", err
	}
	ctx := New()
	top, err := ctx.compiler.Compile(path, source)
	if err != nil {
		return "", err
	}
	return top.Disassemble(), nil
}

// Collect forces an immediate GC cycle, mostly useful for tests that
// want to assert on heap shape deterministically rather than waiting
// for the allocation-threshold trigger.
func (ctx *Context) Collect() {
	ctx.heap.Collect(ctx.vm.roots())
}
