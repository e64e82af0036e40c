package store

// SQL queries for the persistence gateway. Statements that embed table or
// column names are built at the call site after identifier validation.
const (
	// queryTableExists checks the information schema for a table name.
	queryTableExists = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`
)
