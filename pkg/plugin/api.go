package plugin

import (
	"reflect"

	"github.com/traefik/yaegi/interp"
)

// ImportPath is the path plugin sources import the host API from:
//
//	import "selfbot"
const ImportPath = "selfbot"

// Host is the capability surface handed to a plugin's Register and Unregister.
type Host interface {
	// Command installs a route matching "<prefix><pattern>" and returns its id.
	// pattern may use regexp syntax; the prefix anchor is always added.
	Command(pattern string, fn func(Event) error) (int, error)
	// Remove uninstalls a route previously returned by Command.
	Remove(id int) bool
	Prefix() string
	// Text resolves a localization key in the active language.
	Text(key string) string
	Log(msg string)
}

// Event is the matched message as seen by plugin handlers.
type Event interface {
	Text() string
	ChatID() int64
	// Args holds the regexp submatches; Args()[0] is the whole match.
	Args() []string
	Arg(i int) string
	Edit(text string) error
}

// Symbols exports the host API to the interpreter.
func Symbols() interp.Exports {
	return interp.Exports{
		// yaegi keys are "importPath/pkgName".
		ImportPath + "/" + ImportPath: {
			"Host":  reflect.ValueOf((*Host)(nil)),
			"Event": reflect.ValueOf((*Event)(nil)),
		},
	}
}
