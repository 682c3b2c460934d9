package core

import "errors"

var (
	ErrNotFound        = errors.New("session not found")
	ErrNotReady        = errors.New("step is not ready")
	ErrBusy            = errors.New("step is already running")
	ErrApproved        = errors.New("conversion already approved")
	ErrUnsupportedFile = errors.New("unsupported file type: expected Jenkinsfile, .groovy or .xml")
)
