/*
Package manager owns remote sessions and resolves URIs into file handles.

	+-----------+   resolve(uri)   +---------------+   connect   +----------+
	|  caller   | ---------------> |    Manager    | ----------> | Provider |
	+-----------+                  | lock/endpoint |             +----------+
	                               | session/endpt |
	                               +-------+-------+
	                                       |
	                                   *Handle (non-owning)

🎯 Purpose:
  - One Manager per unit of lock isolation
  - One Session per endpoint, reused by every handle on that endpoint
  - Handles reference their session but never own or close it

🔄 Lifecycle:

	Uninitialized -> Initialized -> Resolving <-> Idle -> Closed

Resolving is transient: it is reported while a Resolve call holds an
endpoint lock and is always left before Resolve returns.

🔒 Locking contract:

Session setup is single-flight per endpoint. Each endpoint has one
NON-REENTRANT lock; a Resolve call holds it from before session lookup
until the handle is returned (including the resolve hook).

⚠️ Deadlock hazard:

If anything running under that lock (a resolve hook, an existence or
permission check inside the protocol library) resolves the SAME endpoint
through the SAME Manager, the nested call waits for a lock its caller still
holds and the caller waits for the nested call:

	Resolve(dst) -> lock(host1) -> hook -> Resolve(dst) -> lock(host1) -> waits forever

Two Managers never share locks, so resolving source and destination
through independent Managers cannot deadlock this way.

With Options.LockTimeout set, every acquisition is bounded and the hang is
reported as an errdefs.ErrTimeout naming the current holder. A zero
LockTimeout waits indefinitely, which reproduces the unmodified behaviour.
Context cancellation always aborts a waiting acquisition.

NestedResolveHook injects the nested same-endpoint resolve on every call.
SharedSessionHook injects it only when a resolve reuses an open session,
which reproduces the defect on demand: it fires when two files on one host
share a Manager and never when each file has its own.
*/
package manager
