package mysql

import (
	"errors"
	"strings"
	"testing"

	"github.com/velmie/sqlqueue"
)

func TestSchema(t *testing.T) {
	schema, err := Schema("orders")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.HasPrefix(schema, "CREATE TABLE IF NOT EXISTS `orders` (") {
		t.Fatalf("unexpected schema prefix: %s", schema)
	}
	for _, want := range []string{
		"id BINARY(16) NOT NULL DEFAULT (UUID_TO_BIN(UUID(), 1))",
		"inserted_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)",
		"payload LONGBLOB NULL",
		"INDEX idx_inserted_at (inserted_at, id)",
	} {
		if !strings.Contains(schema, want) {
			t.Fatalf("expected %q in schema", want)
		}
	}
}

func TestSchemaQualifiedName(t *testing.T) {
	schema, err := Schema("app.orders")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(schema, "`app`.`orders`") {
		t.Fatalf("expected quoted qualified name")
	}

	if _, err := Schema("orders;drop"); !errors.Is(err, sqlqueue.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}
