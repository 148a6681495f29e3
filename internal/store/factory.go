package store

import (
	"context"
	"fmt"

	"github.com/olegiv/ocms-migrate/internal/config"
)

// Open connects to the document store named by the credentials.
func Open(ctx context.Context, creds config.StoreCredentials) (DocumentStore, error) {
	switch creds.Driver {
	case config.DriverSQLite:
		return OpenSQL(ctx, DialectSQLite, creds.DSN)
	case config.DriverMySQL:
		return OpenSQL(ctx, DialectMySQL, creds.DSN)
	case config.DriverMongoDB:
		return OpenMongo(ctx, creds.DSN, creds.Database)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", creds.Driver)
	}
}
