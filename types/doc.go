// Package types provides shared types and error definitions for the tandem library.
//
// This is a leaf package with zero tandem imports to prevent import cycles.
// All packages in tandem can safely import this package.
//
// # Types
//
// LabelID identifies which deployment environment is being referenced:
//
//	const (
//	    LabelA LabelID = "A"
//	    LabelB LabelID = "B"
//	)
//
// QueryState tracks the query lifecycle used to gate label transitions:
//
//	Preparing -> Executing -> Fetching -> Completed
//	                       \-> Failed | Cancelled
//
// # Errors
//
// Classification sentinels mirror the transport's failure taxonomy:
//
//   - ErrWrongEnvironment: request reached the non-authoritative fleet
//   - ErrServiceUnavailable: cluster suspended, triggers auto-resume
//   - ErrAccessDenied: session token rejected, triggers re-authentication
//
// Library sentinels cover local failure scenarios:
//
//   - ErrSessionClosed: operation attempted on a closed client
//   - ErrUnknownQuery: operation referenced an unregistered query id
//   - ErrLabelsExhausted: both deployment labels were tried and failed
//   - ErrResumeLockBusy: the cross-process resume lock could not be acquired
//   - ErrNotResumable: the cluster status cannot be recovered from
//   - ErrResumeTimeout: resume polling exceeded its deadline
//
// Wrapped errors support errors.Is/As:
//
//	var exhausted *types.ExhaustedError
//	if errors.As(err, &exhausted) {
//	    log.Printf("first attempt: %v", exhausted.First)
//	    log.Printf("retry attempt: %v", exhausted.Last)
//	}
package types
