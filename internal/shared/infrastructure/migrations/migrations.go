// Package migrations applies the embedded schema for each database backend.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Files lists the up migrations for driver in apply order.
func Files(driver database.Driver) ([]string, error) {
	entries, err := fs.ReadDir(files, driver.String())
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", driver, err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run applies every up migration for the connection's driver. Each script is
// written with IF NOT EXISTS so re-running is harmless.
func Run(ctx context.Context, conn database.Connection) error {
	driver := conn.Driver()
	names, err := Files(driver)
	if err != nil {
		return err
	}
	for _, name := range names {
		script, err := files.ReadFile(driver.String() + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
