package errs

import "errors"

// 领域哨兵错误，handler 层通过 errors.Is 映射到业务状态码。
// service 层用 fmt.Errorf("%w: ...", ErrXxx) 附带上下文。
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrStaleInvite        = errors.New("stale invite")
	ErrNotFound           = errors.New("not found")
	ErrStreamEnded        = errors.New("stream ended")
	ErrAlreadyLive        = errors.New("owner already has an active live session")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInternal           = errors.New("internal")
)
