// Package randomuser is a client for the randomuser.me API.
//
// Each call to FetchUser issues one GET (after waiting on the rate limiter)
// and returns the first record of the response. Transient failures are
// retried through pkg/retry; the bound counts total attempts.
//
//	client, err := randomuser.NewClient(randomuser.Options{
//	    URL:         cfg.API.URL,
//	    Timeout:     cfg.API.Timeout,
//	    MaxAttempts: cfg.Retry.MaxAttempts,
//	    Backoff:     &retry.ConstantBackoff{Delay: cfg.Retry.Delay},
//	    Limiter:     ratelimit.PerMinute(cfg.API.RequestsPerMinute),
//	})
//	user, err := client.FetchUser(ctx)
package randomuser
