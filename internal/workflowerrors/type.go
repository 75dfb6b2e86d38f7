package workflowerrors

import (
	"fmt"
	"strings"
)

// typeName returns the unqualified type name of err, "" for the anonymous errors built by
// errors.New and fmt.Errorf.
func typeName(err error) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}

	switch name {
	case "errorString", "wrapError", "wrapErrors", "joinError":
		return ""
	}

	return name
}
