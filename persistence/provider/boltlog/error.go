package boltlog

import "errors"

// ErrNotReady is returned when a read is attempted but the materialized view
// has not caught up with the log within the configured ready timeout.
//
// It usually means that Store.Run() is not running.
var ErrNotReady = errors.New("materialized view is not ready")
