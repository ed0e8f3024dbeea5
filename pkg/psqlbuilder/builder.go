// Package psqlbuilder настроенные построители запросов squirrel.
package psqlbuilder

import "github.com/Masterminds/squirrel"

// Поддерживаемые драйверы БД
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	postgres = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sqlite   = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
)

// ForDriver возвращает построитель с плейсхолдерами нужного драйвера.
// Неизвестный драйвер получает плейсхолдеры PostgreSQL.
func ForDriver(driver string) squirrel.StatementBuilderType {
	if driver == DriverSQLite {
		return sqlite
	}
	return postgres
}
