package shuttledb

import (
	"context"
	"log"
	"log/slog"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/shuttlego/shuttlecore/internal/logging"
)

// PrintSimpleSchema logs every table, index, and view in the snapshot.
func (c *Client) PrintSimpleSchema() error { // nolint:unused
	rows, err := c.DB.Query(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY type, name
	`)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	log.Println("SNAPSHOT SCHEMA:")
	log.Println("----------------")

	for rows.Next() {
		var objType, objName, objSQL string
		if err := rows.Scan(&objType, &objName, &objSQL); err != nil {
			return err
		}
		log.Printf("%s: %s\n", strings.ToUpper(objType), objName)
		log.Printf("%s\n\n", objSQL)
	}

	return rows.Err()
}

// TableCounts returns the row count of every user table in the snapshot.
func (c *Client) TableCounts() (map[string]int, error) {
	rows, err := c.DB.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		var count int
		if err := c.DB.QueryRow("SELECT COUNT(*) FROM " + name).Scan(&count); err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

// DumpSites pretty-prints every site row. Development helper.
func (c *Client) DumpSites(ctx context.Context) {
	sites, err := c.Queries.ListSites(ctx)
	if err != nil {
		logging.LogError(slog.Default(), "unable to list sites", err)
		return
	}
	spew.Dump(sites)
}
