// Package all registers every storage backend with the factory.
// Blank-import it from main so the config can select any kind at runtime.
package all

import (
	_ "github.com/ShadowBlack33/workshop1-etl/internal/storage/mssql"
	_ "github.com/ShadowBlack33/workshop1-etl/internal/storage/postgres"
	_ "github.com/ShadowBlack33/workshop1-etl/internal/storage/sqlite"
)
