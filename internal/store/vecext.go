package store

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// init registers the sqlite-vec extension with the mattn/go-sqlite3 driver
// so every new connection gets the vec0 virtual table module and the
// vector distance functions for free. If the extension's native code was
// not compiled in, Auto is a no-op, detectVecExtension's probe table
// creation fails, and HasVectorExtension reports false. Vector search
// does not use vec0 in either case: SearchVector is brute-force cosine
// (spec.md §4.4 search_vector).
func init() {
	sqlite_vec.Auto()
}
