package tools

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/neverinfamous/db-mcp/internal/db"
	"github.com/neverinfamous/db-mcp/internal/toolfilter"
)

type backupInput struct {
	Path string `json:"path" jsonschema:"destination file for the backup copy"`
}

type restoreInput struct {
	Path    string `json:"path" jsonschema:"backup file to restore from"`
	Confirm bool   `json:"confirm" jsonschema:"must be true; restore overwrites current tables"`
}

type exportCSVInput struct {
	Table string `json:"table" jsonschema:"table to export"`
	Path  string `json:"path" jsonschema:"destination CSV file"`
}

type importCSVInput struct {
	Table  string `json:"table" jsonschema:"destination table; created from the header row if missing"`
	Path   string `json:"path" jsonschema:"CSV file with a header row"`
	Create bool   `json:"create,omitempty" jsonschema:"create the table from the header row if it does not exist"`
}

func backupTools(a db.Adapter) []*Definition {
	return []*Definition{
		newTool(&mcp.Tool{
			Name:        "sqlite_backup_database",
			Description: "Write a consistent copy of the database to a file (VACUUM INTO).",
		}, toolfilter.GroupBackup, scopeAdmin, func(ctx context.Context, _ *mcp.CallToolRequest, in backupInput) (*mcp.CallToolResult, error) {
			if in.Path == "" {
				return errorResult("path is required"), nil
			}
			if _, err := os.Stat(in.Path); err == nil {
				return errorResult("backup target %q already exists", in.Path), nil
			}
			if _, err := a.Exec(ctx, "VACUUM INTO ?", in.Path); err != nil {
				return errorResult("backup failed: %v", err), nil
			}
			return plainResult(fmt.Sprintf("database backed up to %q", in.Path)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_restore_database",
			Description: "Replace the current tables with those from a backup file.",
		}, toolfilter.GroupBackup, scopeAdmin, func(ctx context.Context, _ *mcp.CallToolRequest, in restoreInput) (*mcp.CallToolResult, error) {
			if !in.Confirm {
				return errorResult("restore requires confirm=true"), nil
			}
			if _, err := os.Stat(in.Path); err != nil {
				return errorResult("backup file: %v", err), nil
			}
			if _, err := a.Exec(ctx, "ATTACH DATABASE ? AS restore_src", in.Path); err != nil {
				return errorResult("attaching backup: %v", err), nil
			}
			defer a.Exec(ctx, "DETACH DATABASE restore_src") //nolint:errcheck

			rs, err := a.Query(ctx, "SELECT name, sql FROM restore_src.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
			if err != nil {
				return errorResult("reading backup schema: %v", err), nil
			}
			restored := 0
			var skipped []string
			for _, row := range rs.Rows {
				name := fmt.Sprint(row[0])
				qName, err := quoteIdent(name)
				if err != nil {
					skipped = append(skipped, name)
					continue
				}
				if _, err := a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS main.%s", qName)); err != nil {
					return errorResult("dropping %q: %v", name, err), nil
				}
				if _, err := a.Exec(ctx, fmt.Sprint(row[1])); err != nil {
					return errorResult("recreating %q: %v", name, err), nil
				}
				if _, err := a.Exec(ctx, fmt.Sprintf("INSERT INTO main.%s SELECT * FROM restore_src.%s", qName, qName)); err != nil {
					return errorResult("copying %q: %v", name, err), nil
				}
				restored++
			}
			msg := fmt.Sprintf("restored %d tables from %q", restored, in.Path)
			if len(skipped) > 0 {
				msg += fmt.Sprintf("; skipped %d with unsupported names: %s",
					len(skipped), strings.Join(skipped, ", "))
			}
			return plainResult(msg), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_export_csv",
			Description: "Export a table to a CSV file with a header row.",
		}, toolfilter.GroupBackup, scopeRead, func(ctx context.Context, _ *mcp.CallToolRequest, in exportCSVInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			rs, err := a.Query(ctx, fmt.Sprintf("SELECT * FROM %s", tbl))
			if err != nil {
				return errorResult("export failed: %v", err), nil
			}
			f, err := os.OpenFile(in.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return errorResult("opening %q: %v", in.Path, err), nil
			}
			defer f.Close()

			w := csv.NewWriter(f)
			if err := w.Write(rs.Columns); err != nil {
				return errorResult("writing header: %v", err), nil
			}
			for _, row := range rs.Rows {
				record := make([]string, len(row))
				for i, v := range row {
					if v != nil {
						record[i] = fmt.Sprint(v)
					}
				}
				if err := w.Write(record); err != nil {
					return errorResult("writing row: %v", err), nil
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return errorResult("flushing csv: %v", err), nil
			}
			return plainResult(fmt.Sprintf("exported %d rows to %q", rs.Count, in.Path)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_import_csv",
			Description: "Import a CSV file with a header row into a table.",
		}, toolfilter.GroupBackup, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, in importCSVInput) (*mcp.CallToolResult, error) {
			tbl, err := quoteIdent(in.Table)
			if err != nil {
				return errorResult("%v", err), nil
			}
			f, err := os.Open(in.Path)
			if err != nil {
				return errorResult("opening %q: %v", in.Path, err), nil
			}
			defer f.Close()

			r := csv.NewReader(f)
			records, err := r.ReadAll()
			if err != nil {
				return errorResult("reading csv: %v", err), nil
			}
			if len(records) == 0 {
				return errorResult("csv file %q is empty", in.Path), nil
			}
			header := records[0]
			cols, err := quoteIdents(header)
			if err != nil {
				return errorResult("invalid header: %v", err), nil
			}
			if in.Create {
				typed := make([]string, len(header))
				for i, c := range header {
					q, _ := quoteIdent(c)
					typed[i] = q + " TEXT"
				}
				create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tbl, strings.Join(typed, ", "))
				if _, err := a.Exec(ctx, create); err != nil {
					return errorResult("creating table: %v", err), nil
				}
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
			insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tbl, cols, placeholders)
			imported := 0
			for _, record := range records[1:] {
				if len(record) != len(header) {
					return errorResult("row %d has %d fields, want %d", imported+2, len(record), len(header)), nil
				}
				args := make([]any, len(record))
				for i, v := range record {
					args[i] = v
				}
				if _, err := a.Exec(ctx, insert, args...); err != nil {
					return errorResult("inserting row %d: %v", imported+2, err), nil
				}
				imported++
			}
			return plainResult(fmt.Sprintf("imported %d rows into %q", imported, in.Table)), nil
		}),

		newTool(&mcp.Tool{
			Name:        "sqlite_vacuum",
			Description: "Rebuild the database file, reclaiming free pages.",
		}, toolfilter.GroupBackup, scopeWrite, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, error) {
			if _, err := a.Exec(ctx, "VACUUM"); err != nil {
				return errorResult("vacuum failed: %v", err), nil
			}
			return plainResult("vacuum complete"), nil
		}),
	}
}
