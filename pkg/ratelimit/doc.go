// Package ratelimit throttles outbound requests to the random user API.
//
// TokenBucket holds a fixed number of tokens that are restored in full once
// per period. Wait blocks until a token is free and gives up when the
// context is cancelled.
//
//	limiter := ratelimit.PerMinute(60)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
