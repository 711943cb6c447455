// Package region implements the commit point of a table: mutations are committed to
// the primary table and then passed to every attached observer in attach order.
//
// Observers (typically hook.Dispatcher) are started once when they are attached. An
// observer whose start fails is not attached.
//
// Consistency:
//
//	Observers run after the primary commit and synchronously on the caller's
//	goroutine. If an observer fails, the primary mutation stays committed, the
//	remaining observers are skipped and Mutate returns an error wrapping
//	ErrDerivedIncomplete.
package region
