/*
Package ports defines the driven ports (interfaces) of policylab.

These interfaces decouple session persistence from concrete backends, so the
same session manager runs over memory, files, SQLite or Redis.

# Key Interfaces

  - KVStore: byte-oriented storage for persisted sessions.
  - DistributedLocker: cross-process mutual exclusion for one session key.

RunKVStoreContract is a reusable test suite every KVStore adapter runs.
*/
package ports
