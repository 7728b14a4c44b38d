package errors

import "fmt"

var (
	ErrPersistenceFailure = fmt.Errorf("persistence failure")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
