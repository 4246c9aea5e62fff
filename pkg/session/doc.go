/*
Package session serializes access to stored conversations.

A Manager wraps a ports.SessionStore with per-session locks so that two
execution passes over the same session never interleave inside a process.
With a ports.DistributedLocker the guarantee extends across replicas that
share the store.
*/
package session
