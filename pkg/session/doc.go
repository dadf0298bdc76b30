/*
Package session implements the session store: creation, resumption, advancement and
reset of the single persisted session each simulation has.

Sessions are JSON records kept in a ports.KVStore under "<prefix><simulationID>".
Access to one simulation id is serialised by a reference-counted lock map and,
when configured, a ports.DistributedLocker shared by every process using the store.

Storage failures never reach callers. They are logged, reported through
LifecycleHooks.OnPersistenceError, and the session is treated as absent (reads) or
kept only in the returned value (writes). Only precondition violations are returned
as errors.
*/
package session
