package lib

import "fmt"

// Assert panics when the condition does not hold.
// The params may be:
// - error (panics if not nil)
// - bool and optional message (panics if false)
func Assert(params ...interface{}) {
	cond := params[0]
	if cond == nil {
		return
	}

	if e, ok := cond.(error); ok {
		panic(e)
	}

	if b, ok := cond.(bool); ok {
		if b {
			return
		}
		msg := "assertion failed"
		if len(params) > 1 {
			msg = fmt.Sprint(params[1:]...)
		}
		panic(msg)
	}

	panic(cond)
}
