// Package types provides the shared tool-dispatch data structures for ptyd.
//
// A provider describes itself with a Service (its tools and their parameters)
// and answers Execute calls with a Result. The HTTP /invoke endpoint and the
// terminal provider both speak these types.
//
// Example Usage:
//
//	result, err := provider.Execute(ctx, "terminal.write", map[string]interface{}{
//	    "session_id": "sess_01J...",
//	    "data":       "ls\n",
//	})
package types
