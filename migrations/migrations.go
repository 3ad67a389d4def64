// Package migrations хранит схемы хранилища для каждого драйвера.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// For возвращает миграции для драйвера ("postgres" или "sqlite").
func For(driver string) (fs.FS, error) {
	return fs.Sub(files, driver)
}
