package check

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// check returns nil when the condition holds. Otherwise the returned error carries the caller's
// message (if any) followed by the default message.
func check(condition bool, msgAndArgs []interface{}, defaultMsg string, args ...interface{}) error {
	if condition {
		return nil
	}
	msg := fmt.Sprintf(defaultMsg, args...)
	if prefix := messageFromMsgAndArgs(msgAndArgs...); prefix != "" {
		msg = prefix + ": " + msg
	}
	return errors.New(msg)
}

func messageFromMsgAndArgs(msgAndArgs ...interface{}) string {
	switch {
	case len(msgAndArgs) == 1:
		if msg, ok := msgAndArgs[0].(string); ok {
			return msg
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	case len(msgAndArgs) > 1:
		return fmt.Sprintf(msgAndArgs[0].(string), msgAndArgs[1:]...)
	default:
		return ""
	}
}

func isNil(val interface{}) bool {
	if val == nil {
		return true
	}
	v := reflect.ValueOf(val)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// True checks whether the condition is true.
func True(condition bool, msgAndArgs ...interface{}) error {
	return check(condition, msgAndArgs, "expected true, got false")
}

// NotEmpty checks whether the string is non-empty.
func NotEmpty(actual string, msgAndArgs ...interface{}) error {
	return check(actual != "", msgAndArgs, "expected a non-empty value")
}

// NotNil checks whether the value is neither nil nor a nil pointer.
func NotNil(actual interface{}, msgAndArgs ...interface{}) error {
	return check(!isNil(actual), msgAndArgs, "expected a non-nil value")
}

// GreaterThan checks whether actual is strictly greater than expected.
func GreaterThan(actual, expected int, msgAndArgs ...interface{}) error {
	return check(actual > expected, msgAndArgs, "%d is not greater than %d", actual, expected)
}

// GreaterThanOrEqualTo checks whether actual is greater than or equal to expected.
func GreaterThanOrEqualTo(actual, expected int, msgAndArgs ...interface{}) error {
	return check(actual >= expected, msgAndArgs,
		"%d is not greater than or equal to %d", actual, expected)
}

// InRange checks whether lower <= actual <= upper.
func InRange(actual, lower, upper int, msgAndArgs ...interface{}) error {
	return check(lower <= actual && actual <= upper, msgAndArgs,
		"%d is not in range [%d, %d]", actual, lower, upper)
}

// PositiveDuration checks whether the duration is strictly positive.
func PositiveDuration(actual time.Duration, msgAndArgs ...interface{}) error {
	return check(actual > 0, msgAndArgs, "%s is not a positive duration", actual)
}

// AbsoluteURL checks whether the string parses as an absolute http(s) URL.
func AbsoluteURL(actual string, msgAndArgs ...interface{}) error {
	u, err := url.Parse(actual)
	ok := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	return check(ok, msgAndArgs, "%q is not an absolute http(s) URL", actual)
}
