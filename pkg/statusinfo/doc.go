// Package statusinfo tracks the progress of nested, possibly concurrent
// operations and tells interested listeners when those operations begin,
// advance, or end.
//
// Operations are scoped to a Thread, an explicit execution context carried in
// a context.Context. Starting an operation on a thread that already has an
// open operation nests the new one under the innermost open operation, so
// callers get a parent/child hierarchy without passing handles around.
// StartSubOperation attaches work started on one thread to a parent owned by
// another.
//
// Ending an operation also ends every open descendant on the same thread
// between the active leaf and the ended operation, as long as that chain is
// unbranched. Operations that still have other live children are preserved.
//
//	ctx = statusinfo.WithNewThread(ctx, "importer")
//	h := reg.StartOperation(ctx, "import catalog", 3)
//	for _, file := range files {
//		load(file)
//		_ = reg.UpdateCurrentOperation(ctx, 1)
//	}
//	reg.EndOperation(h.Receipt)
//
// Listener callbacks run without any registry lock held, so they may call
// back into the Registry.
package statusinfo
