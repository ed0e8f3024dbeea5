package snapshot

import "github.com/m04kA/SMC-LifecycleService/pkg/dbmetrics"

// DBExecutor интерфейс для выполнения запросов.
// Поддерживает *sql.DB, *sql.Tx и *dbmetrics.DB.
type DBExecutor = dbmetrics.DBExecutor
