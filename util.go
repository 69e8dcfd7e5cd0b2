package ipmi

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

func toJSON(s interface{}) string {
	r, _ := json.Marshal(s)
	return string(r)
}

// isTimeout reports whether err is (or wraps) a network timeout.
func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}

// isSocketFault reports whether err is a non-timeout socket-level I/O
// failure: a failed write (SendError) or a failed/short read (ReceiveError).
func isSocketFault(err error) bool {
	var serr *SendError
	if errors.As(err, &serr) {
		return true
	}
	var rerr *ReceiveError
	return errors.As(err, &rerr)
}

// isRetryable reports whether err is the kind of failure a retry can fix:
// a timeout, a socket I/O error, or a missing/undecodable response.
func isRetryable(err error) bool {
	if isTimeout(err) || isSocketFault(err) {
		return true
	}
	var merr *MalformedPacketError
	return errors.As(err, &merr)
}

// retry runs f up to retries+1 times, sleeping delay between attempts, as
// long as each failure is retryable (timeout, I/O error, or missing
// response). Any other error returns immediately. If the final attempt
// fails with a timeout, a TimeoutError recording how many retries were
// spent is returned in place of that error; a non-timeout retryable
// failure is returned as-is once retries are exhausted.
func retry(retries int, delay time.Duration, f func() error) error {
	var err error
	for i := 0; i <= retries; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if i == retries {
			if isTimeout(err) {
				return &TimeoutError{Retries: i}
			}
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return err
}
