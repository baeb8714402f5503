// Package dialect renders expression trees and statements as backend query
// text.
//
// A Dialect walks the tree with an expr.Visitor and produces parameterized
// SQL plus the ordered argument list:
//
//	d := dialect.NewPostGIS(catalogs)
//	sql, args, err := d.Render(sel, dialect.Options{})
//	// SELECT "name" FROM "cities" WHERE ST_Intersects("geom", ST_GeomFromText($1, $2))
//
// Operators render infix with parentheses only where precedence or
// associativity requires them, keeping operands in tree order. Function
// calls resolve through a FunctionCatalogManager: the backend's catalog
// first, then the generic catalog of standard SQL functions when the
// dialect allows it. A function found in neither is an unsupported
// operation; it is never dropped from the output.
//
// The WFS dialect encodes filters as ECQL with inline literals and turns a
// Select into GetFeature request parameters.
package dialect
