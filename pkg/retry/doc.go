// Package retry runs an operation until it succeeds, the error is classified
// as permanent, or the attempt bound is reached.
//
// The bound counts total attempts, and no delay is spent after the last one:
// with MaxAttempts 5 and a 5s ConstantBackoff a permanently failing operation
// costs four waits. Waits observe the context, so cancelling it aborts the
// loop between attempts.
//
//	user, err := retry.DoWithResult(func() (*randomuser.User, error) {
//		return client.fetchOnce(ctx)
//	}, &retry.Config{
//		MaxAttempts: 5,
//		Backoff:     &retry.ConstantBackoff{Delay: 5 * time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//		Context:     ctx,
//		Logger:      logger.GetLogger(),
//	})
package retry
