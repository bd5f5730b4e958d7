package ape

import "fmt"

// installBuiltins registers the handful of globals every Context starts
// with, grounded on original_source/imp.c's builtins.c table: len,
// to_str, print, error, and crash. Everything else a host wants is added via
// SetNativeFunction/SetGlobalConstant.
func installBuiltins(globals *globalStore, h *heap) {
	define := func(name string, fn NativeFunction) {
		nf := &nativeFunctionData{name: name, fn: fn}
		globals.define(name, objectValue(TypeNativeFunction, h.allocNativeFunction(nf)))
	}

	define("len", builtinLen)
	define("to_str", builtinToStr)
	define("print", builtinPrint)
	define("error", builtinError)
	define("crash", builtinCrash)
}

func builtinLen(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null, fmt.Errorf("len expects 1 argument, got %d", len(args))
	}
	v := args[0]
	switch {
	case v.IsArray():
		return NumberValue(float64(len(v.AsArray()))), nil
	case v.IsMap():
		return NumberValue(float64(v.AsMap().Len())), nil
	case v.IsString():
		return NumberValue(float64(len([]rune(v.AsString())))), nil
	default:
		return Null, fmt.Errorf("cannot get length of %s", v.Type())
	}
}

func builtinToStr(vm *VM, args []Value) (Value, error) {
	if len(args) != 1 {
		return Null, fmt.Errorf("to_str expects 1 argument, got %d", len(args))
	}
	s := args[0].ToDisplayString()
	return objectValue(TypeString, vm.Heap().allocString(s)), nil
}

// builtinPrint writes every argument's display form, space-separated,
// followed by a newline, to the Context's configured stdout writer.
func builtinPrint(vm *VM, args []Value) (Value, error) {
	w := vm.Stdout()
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, a.ToDisplayString())
	}
	fmt.Fprintln(w)
	return Null, nil
}

// builtinError constructs an `error`-typed value carrying the given
// message, the same type recover() produces. It only returns that value;
// no runtime error is raised, so a recover block does not see it.
func builtinError(vm *VM, args []Value) (Value, error) {
	msg := ""
	if len(args) > 0 {
		msg = args[0].ToDisplayString()
	}
	return objectValue(TypeError, vm.Heap().allocError(msg, nil)), nil
}

// builtinCrash unconditionally raises a runtime error, for exercising
// recover() in tests — grounded on original_source/builtins.c's
// cfn_crash, which queues a runtime error directly rather than
// returning an `error` value.
func builtinCrash(vm *VM, args []Value) (Value, error) {
	if len(args) == 1 && args[0].IsString() {
		return Null, fmt.Errorf("%s", args[0].AsString())
	}
	return Null, fmt.Errorf("")
}
