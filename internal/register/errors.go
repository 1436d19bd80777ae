package register

import "errors"

// ErrQuorumFailure is returned when a majority of replies could not be
// obtained before every outstanding peer request terminated. The HTTP
// layer maps this to a 5xx.
var ErrQuorumFailure = errors.New("register: quorum not reached")

// ErrCancelled means the caller's context was cancelled (connection
// dropped) before the operation reached a terminal state. No reply is
// owed; cleanup only.
var ErrCancelled = errors.New("register: operation cancelled")
