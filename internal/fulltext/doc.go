// Package fulltext provides the optional fuzzy keyword stage of the hybrid
// search. A Backend (embedded bleve or a remote Elasticsearch) is wrapped by
// an Adapter that tracks availability and never fails a query.
package fulltext
