package errors

import (
	"errors"
	"strconv"
)

var (
	ErrUdidEmpty        = errors.New("udid is empty")
	ErrInvalidBindLevel = errors.New("bindLevel out of range")
	ErrAccessDenied     = errors.New("no acl profile satisfies the access check")
	ErrProfileNotExist  = func(accessControlId int64) error {
		return errors.New("acl profile not exist: " + strconv.FormatInt(accessControlId, 10))
	}
)
