/*
Package operation runs one remote copy from start to finish.

	+-------------+
	|  Operation  |
	|   (Copy)    |
	+------+------+
	       |
	+------+------+      +-----------+
	|    Scope    | ---> |  Manager  |  x1 shared, x2 isolated
	+------+------+      +-----------+
	       |
	+------+------+
	|   Copier    |
	+-------------+

🔄 Flow:
 1. Scope opens the managers for the configured mode
 2. Destination is resolved, then the source
 3. Copier replaces the destination content
 4. Scope closes the managers in reverse order, whatever happened

⚡ Runner:

OperationRunner bounds an operation with an optional timeout. In async
mode the operation runs on an errgroup goroutine and Run returns as soon
as the context is done, so a copy hung on an endpoint lock is reported
instead of blocking the caller forever.

🔍 Example:

	op, err := operation.NewCopyOperation(operation.Options{
		Provider: provider,
		Auth:     cfg,
		Mode:     scope.ModeShared,
	}, operation.CopyRequest{Host: "h", From: "a.txt", To: "b.txt"})
	if err != nil {
		return err
	}
	err = operation.NewRunner(logger, true, operation.WithTimeout(time.Minute)).Run(ctx, op)
*/
package operation
