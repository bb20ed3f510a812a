package storage

// PostgresConnString exposes postgresConnString to the external test package.
var PostgresConnString = postgresConnString
