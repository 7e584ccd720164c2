package plugin

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrNoRegister is returned when a plugin does not define Register.
var ErrNoRegister = errors.New("plugin does not define Register")

type entryFunc func(Host) error

// compiled is an evaluated plugin with its resolved entry points.
type compiled struct {
	pkg        string
	register   entryFunc
	unregister entryFunc
	commands   []string
}

// Info describes a plugin source without installing it.
type Info struct {
	Package       string
	Commands      []string
	HasRegister   bool
	HasUnregister bool
}

// compile evaluates src in a fresh interpreter, running its top-level code, and
// resolves Register, Unregister and Commands.
func compile(filename string, src []byte) (c *compiled, err error) {
	pkg, err := packageName(filename, src)
	if err != nil {
		return nil, err
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("evaluate %s: panic: %v", filename, recovered)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols()); err != nil {
		return nil, fmt.Errorf("load host symbols: %w", err)
	}

	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", filename, err)
	}

	c = &compiled{pkg: pkg}
	if fn, ok := lookupEntry(i, pkg, "Register"); ok {
		c.register = fn
	}
	if fn, ok := lookupEntry(i, pkg, "Unregister"); ok {
		c.unregister = fn
	}
	if v, err := i.Eval(qualify(pkg, "Commands")); err == nil && v.IsValid() {
		if commands, ok := v.Interface().([]string); ok {
			c.commands = append([]string(nil), commands...)
		}
	}

	return c, nil
}

// Inspect evaluates a plugin offline and reports its entry points.
func Inspect(filename string, src []byte) (Info, error) {
	c, err := compile(filename, src)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Package:       c.pkg,
		Commands:      c.commands,
		HasRegister:   c.register != nil,
		HasUnregister: c.unregister != nil,
	}, nil
}

func lookupEntry(i *interp.Interpreter, pkg string, name string) (entryFunc, bool) {
	v, err := i.Eval(qualify(pkg, name))
	if err != nil || !v.IsValid() {
		return nil, false
	}

	switch fn := v.Interface().(type) {
	case func(Host) error:
		return fn, true
	case func(Host):
		return func(h Host) error {
			fn(h)
			return nil
		}, true
	default:
		return nil, false
	}
}

// qualify returns the expression naming a top-level symbol. Symbols of package
// main are in the interpreter's global scope; other packages are referenced by
// name.
func qualify(pkg string, name string) string {
	if pkg == "main" {
		return name
	}
	return pkg + "." + name
}

func packageName(filename string, src []byte) (string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), filename, src, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filename, err)
	}
	return file.Name.Name, nil
}

// call runs an entry point, converting a panic into an error.
func call(fn entryFunc, h Host) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return fn(h)
}
