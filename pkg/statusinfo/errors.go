package statusinfo

import "errors"

// ErrNoOperationInProgress signals that the targeted operation does not
// exist: the thread has no open operation, or the receipt is unknown or
// already ended.
var ErrNoOperationInProgress = errors.New("statusinfo: no operation in progress")
