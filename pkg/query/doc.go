// Package query translates declarative, MongoDB-style request parameters into
// parameterized PostgreSQL statements.
//
// A request is first parsed into a Command: an ordered payload (Row), a filter
// tree (Filter), sort keys, pagination and an optional column projection.
// Build then renders the Command for exactly one Mode.
//
// Filter values map onto SQL as follows:
//
//	Value shape                  | SQL fragment
//	-----------------------------|------------------------------------------
//	null                         | field IS NULL
//	scalar                       | field = $n
//	[]                           | 0=1 (matches nothing)
//	[a, b, c]                    | field IN ($n, $n+1, $n+2)
//	{"$gt": v} / {"$lte": v} ... | field > $n / field <= $n ...
//	{"$ne": null}                | field IS NOT NULL
//	{"$like": p} / {"$ilike": p} | field LIKE $n / field ILIKE $n
//	{"$in": [a, b]}              | field IN ($n, $n+1)
//	{"$or": [v1, v2]}            | (field = $n OR field = $n+1)
//	{"$or": [{...}, {...}]}      | (clause1 OR clause2), at the top level
//	"field->>sub" key            | "field"->>'sub' applied before comparison
//
// Parameter numbering is a single running sequence for the whole statement;
// for UPDATE the WHERE parameters are numbered before the SET parameters.
//
// JSON objects are decoded token by token so that object key order survives:
// column lists, sort keys and placeholder numbering all derive from it.
package query
