// Package types defines the shared data model of the coordinator: requests,
// jobs, nodes and the rows the store joins them into.
package types
