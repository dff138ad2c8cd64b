package externalApi

import "errors"

var ErrUnexpectedStatus = errors.New("error unexpected status")
