package analysis

import "errors"

var (
	// ErrInvalidConfig indicates the analyzer was constructed with
	// missing or malformed configuration.
	ErrInvalidConfig = errors.New("invalid analyzer configuration")

	// ErrInvalidPayload indicates the job payload cannot be turned into
	// an analysis request. Permanent: retrying the same payload cannot
	// succeed.
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrContentBlocked indicates the model refused the request on
	// safety grounds. Permanent.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrInvalidResponse indicates the model returned something the
	// analyzer cannot use. Permanent.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrTransientFailure indicates the API call failed in a way that
	// may succeed on retry; it is returned once the retry budget is
	// exhausted.
	ErrTransientFailure = errors.New("transient analysis failure")
)
