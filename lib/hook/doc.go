// Package hook implements the dispatcher invoked by a region after every committed
// mutation. A dispatcher selects the cells named by its targets, hands them to its
// deriver and issues the resulting writes against other tables.
//
// Kinds:
//
//   - fizzbuzz: classifies 4 byte integers and writes one provenance tagged cell per
//     source cell into the "fizzbuzz" table. All puts of one invocation are issued as
//     one batch per table.
//   - wordcount: counts the words of text cells. Every word occurrence is issued as a
//     separate increment of the counter (table "words", column "count" by default).
//
// Options (passed to OnStart, immutable afterward):
//
//	targets  space separated "family[:qualifier]" list; without targets the hook is
//	         ready but never matches
//	table    wordcount only, name of the count table (default "words")
//	column   wordcount only, "family[:qualifier]" of the counter (default "count")
//
// Lifecycle:
//
//	A dispatcher starts Uninitialized and becomes Ready on the first successful
//	OnStart. A failed OnStart leaves it Uninitialized, a second OnStart on a ready
//	dispatcher fails with ErrAlreadyStarted. OnAfterMutationCommit fails with
//	ErrNotReady until the dispatcher is ready.
//
// Failures:
//
//	Deriver and table errors are returned to the caller wrapped with the hook kind.
//	Nothing is retried and nothing is rolled back: the source mutation is already
//	committed when the hook runs, so a failure means the derived data may be incomplete.
//	Table handles are opened on first use within an invocation and closed before
//	OnAfterMutationCommit returns, on every path.
//
// Thread-safety:
//
//	OnAfterMutationCommit may be called concurrently. The only state shared between
//	invocations is the configuration, which never changes after start.
package hook
