// Package store holds the catalog embedding matrix and answers vector
// similarity queries against it.
//
// The matrix is built once per process through MatrixHandle. Row i of the
// matrix always corresponds to entry i of the flattened catalog. Builds can
// reuse vectors persisted in a badger snapshot, and a file lock serializes
// builds of processes that share a snapshot directory.
package store
