/*
Package ports defines the driven ports (interfaces) for the calculator engine.

These interfaces decouple the core from external implementations, so the same
engine runs against an in-memory map in tests and a shared Redis in production.

# Key Interfaces

  - Engine: Starts sessions and dispatches commands; implemented by tally.Engine.
  - StateStore: Persists and loads session State.
  - DistributedLocker: Serializes access to a session across replicas.
*/
package ports
