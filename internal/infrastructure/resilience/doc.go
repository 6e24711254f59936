/*
Package resilience provides the circuit breaker used around remote artifact fetches.

# Usage

	breaker := resilience.New("artifact-remote", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	path, err := resilience.Do(ctx, breaker, func(ctx context.Context) (string, error) {
		return download(ctx, url)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open

IsFailure lets callers keep definitive answers (a missing artifact) from
tripping the breaker.
*/
package resilience
