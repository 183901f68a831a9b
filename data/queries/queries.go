package queries

import (
	"embed"
	"fmt"
)

//go:embed delete/*.sql insert/*.sql select/*.sql schema/*.sql
var Files embed.FS

// ^^^ the go:embed directive compiles the sql files into the binary

type DeleteQueries struct {
	ClosesBySourceId string
}

type InsertQueries struct {
	Metadata string
}

type SelectQueries struct {
	ClosesSince      string
	MetaDataBySymbol string
}

type SchemaQueries struct {
	PriceCache string
}

type QueryHelperStruct struct {
	Delete DeleteQueries
	Insert InsertQueries
	Select SelectQueries
	Schema SchemaQueries
}

var QueryHelper = QueryHelperStruct{
	Delete: DeleteQueries{
		ClosesBySourceId: "delete/closes_by_source_id.sql",
	},
	Insert: InsertQueries{
		Metadata: "insert/metadata.sql",
	},
	Select: SelectQueries{
		ClosesSince:      "select/closes_since.sql",
		MetaDataBySymbol: "select/meta_data_by_symbol.sql",
	},
	Schema: SchemaQueries{
		PriceCache: "schema/price_cache.sql",
	},
}

func Get(path string) string {
	content, err := Files.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("error reading query file: %w", err))
	}

	return string(content)
}
