package check

// Contains checks whether the actual value is contained in the expected list. This method returns
// an error with the provided message if the check fails.
func Contains[T comparable](actual T, expected []T, msgAndArgs ...interface{}) error {
	for _, value := range expected {
		if value == actual {
			return nil
		}
	}
	return check(false, msgAndArgs, "%v not in %v", actual, expected)
}
