package mongo

import "errors"

var (
	// ErrFailedToConnectToMongo is returned when all connection attempts are exhausted.
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	// ErrHealthcheckFailed is returned when the ping probe fails.
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)
