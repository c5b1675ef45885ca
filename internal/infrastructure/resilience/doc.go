/*
Package resilience provides a circuit breaker for calls to a remote ptyd.

# Overview

The breaker stops a client from hammering a daemon that keeps failing. After
ReadyToTrip reports true the breaker opens and rejects calls with
ErrCircuitOpen until Timeout elapses. It then lets MaxRequests probes through
in the half-open state.

IsSuccessful decides which errors count as failures. The ptyd client treats
domain answers such as session_not_found or capacity_exceeded as successes:
the daemon answered, so there is nothing to trip on.

# Usage

	breaker := resilience.New("ptyd", resilience.Settings{
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || terminal.Kind(err) != "internal"
		},
	})

	err := breaker.Call(func() error {
		return client.do(ctx, req)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
