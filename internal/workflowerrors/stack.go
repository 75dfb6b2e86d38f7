package workflowerrors

import goerrors "github.com/go-errors/errors"

// stack returns the formatted stack, skipping the given number of frames above its caller.
func stack(skip int) string {
	goerr := goerrors.Wrap("", skip+1)
	return string(goerr.Stack())
}
