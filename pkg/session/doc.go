/*
Package session serializes access to calculator sessions.

Commands for one session are applied strictly in arrival order: a
ref-counted in-process mutex guards each session ID, and an optional
distributed lock extends that guarantee across replicas sharing a store.
*/
package session
