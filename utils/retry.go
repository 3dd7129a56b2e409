package utils

import "time"

// Connector retries an expensive attempt on rate-limit class failures
// with linear backoff. Any non-retryable error propagates immediately;
// exhausting the attempts surfaces the last observed error.
type Connector struct {
	MaxAttempts int
	BackoffBase time.Duration
	// Retryable classifies an error as rate-limit class. Nil means
	// nothing is retried.
	Retryable func(error) bool
}

// Do runs attempt until it succeeds, the token fires, a non-retryable
// error occurs, or MaxAttempts is reached. It sleeps
// BackoffBase × (attemptIndex + 1) between attempts and re-checks the
// token before every retry. The number of attempts made is returned
// alongside the final error.
func (c Connector) Do(token *Token, attempt func() error) (int, error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for i := 0; i < maxAttempts; i++ {
		if terr := token.Err(); terr != nil {
			return i, terr
		}
		if err = attempt(); err == nil {
			return i + 1, nil
		}
		if c.Retryable == nil || !c.Retryable(err) {
			return i + 1, err
		}
		if i+1 == maxAttempts {
			break
		}
		if serr := token.Sleep(c.BackoffBase * time.Duration(i+1)); serr != nil {
			return i + 1, serr
		}
	}
	return maxAttempts, err
}
