// Package all wires every built-in sink backend into the sink registry.
// Import it for its side effects:
//
//	import _ "github.com/ginjaninja78/tabular-loader/internal/sink/all"
//
// After that, sink.Open accepts the kinds "bigquery", "postgres", "sqlite"
// and "xml".
package all

import (
	_ "github.com/ginjaninja78/tabular-loader/internal/sink/bigquery"
	_ "github.com/ginjaninja78/tabular-loader/internal/sink/postgres"
	_ "github.com/ginjaninja78/tabular-loader/internal/sink/sqlite"
	_ "github.com/ginjaninja78/tabular-loader/internal/sink/xmlfile"
)
