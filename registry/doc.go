// Package registry provides a keyed get-or-create store with construct-once
// semantics. It backs the process-wide registries of repository handles and
// translation stores: the first access for a key builds the entry under a
// single-flight guard and later accesses read the memoized value.
package registry
