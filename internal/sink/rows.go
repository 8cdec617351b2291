package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ginjaninja78/tabular-loader/internal/types"
)

// AttributesJSON encodes record attributes as a JSON array of
// {"Key": ..., "Value": ...} objects. A nil slice encodes as [].
func AttributesJSON(attrs []types.Attribute) ([]byte, error) {
	if attrs == nil {
		attrs = []types.Attribute{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	return b, nil
}

// Rows flattens records into values ordered like types.Columns, for SQL
// backends. Attributes become JSON text.
func Rows(records []types.Record) ([][]any, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		attrs, err := AttributesJSON(r.Attributes)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = []any{
			text(r.Id), text(r.FirstName), text(r.LastName), text(r.Email),
			text(r.Mobile), text(r.PostCode), text(r.DataSource),
			text(r.SourceCreatedDate), text(r.SourceModifiedDate),
			r.SourceFile, string(attrs), r.BQInsertedDate,
		}
	}
	return rows, nil
}

// text converts an optional value into a driver argument; nil is NULL.
func text(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// QuoteIdent quotes a SQL identifier with double quotes, escaping embedded
// quotes. Both SQLite and Postgres accept this form.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
