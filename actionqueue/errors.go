package actionqueue

import "errors"

var (
	errResourceInitFailed = errors.New("actionqueue: render target init failed")
	errUnknownItemType    = errors.New("actionqueue: unknown item type")
)
