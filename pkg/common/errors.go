package common

import "errors"

// AsError finds the first error in the chain of err which is of type T.
func AsError[T error](err error) (result T, ok bool) {
	ok = errors.As(err, &result)
	return
}
