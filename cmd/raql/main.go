// Command raql is a minimal REPL over the RA-to-SQL compiler: it
// loads a catalog from a SQLite database, compiles RA queries typed
// at the prompt (or read from a file via source), executes them, and
// prints the result as a table.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/raql-dev/raql"
	"github.com/raql-dev/raql/internal/catalog"
	"github.com/raql-dev/raql/internal/driver"
)

func main() {
	dbPath := flag.String("db", ":memory:", "path to the SQLite database backing the catalog")
	logPath := flag.String("log", "", "write structured logs to this file instead of stderr")
	flag.Parse()

	logger, err := newLogger(*logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	drv, err := driver.OpenSQLite(*dbPath)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		os.Exit(1)
	}
	drv.SetLogger(logger)
	defer drv.Close()

	ctx := context.Background()
	cat, err := catalog.Load(ctx, schemaSource{drv})
	if err != nil {
		logger.Error("load catalog", zap.Error(err))
		os.Exit(1)
	}

	repl := &REPL{
		cat:    cat,
		drv:    drv,
		out:    os.Stdout,
		errOut: os.Stderr,
		logger: logger,
	}
	repl.Run(os.Stdin)
}

// schemaSource adapts a driver.Driver to catalog.SchemaSource: both
// expose list_relations/list_columns, but as distinct named types so
// the catalog package stays independent of the driver package.
type schemaSource struct {
	drv driver.Driver
}

func (s schemaSource) ListRelations(ctx context.Context) ([]string, error) {
	return s.drv.ListRelations(ctx)
}

func (s schemaSource) ListColumns(ctx context.Context, relation string) ([]catalog.ColumnInfo, error) {
	cols, err := s.drv.ListColumns(ctx, relation)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.ColumnInfo, len(cols))
	for i, c := range cols {
		out[i] = catalog.ColumnInfo{Name: c.Name, RawSQLType: c.RawSQLType}
	}
	return out, nil
}

func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewProduction()
	}
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), writer, zap.InfoLevel)
	return zap.New(core, zap.AddCaller()), nil
}

// REPL reads `;`-terminated statements and evaluates them against a
// catalog and driver (§6.4).
type REPL struct {
	cat    *catalog.Catalog
	drv    driver.Driver
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

// Run drives the read-eval-print loop until EOF or an exit command.
func (r *REPL) Run(input io.Reader) {
	fmt.Fprintln(r.out, "raql - relational algebra to SQL compiler")
	fmt.Fprintln(r.out, "enter \"help;\" for usage hints.")

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		pending.WriteString(line)
		pending.WriteByte(' ')

		for {
			stmt, rest, ok := splitStatement(pending.String())
			if !ok {
				break
			}
			pending.Reset()
			pending.WriteString(rest)
			if r.handle(strings.TrimSpace(stmt)) {
				return
			}
		}
	}
}

func splitStatement(buf string) (stmt, rest string, ok bool) {
	idx := strings.IndexByte(buf, ';')
	if idx < 0 {
		return "", buf, false
	}
	return buf[:idx], buf[idx+1:], true
}

// handle evaluates a single statement and reports whether the REPL
// should exit.
func (r *REPL) handle(stmt string) (exit bool) {
	if stmt == "" {
		return false
	}
	switch strings.ToLower(stmt) {
	case "exit", "quit", "q":
		return true
	case "help", "h":
		r.printHelp()
		return false
	case "schema":
		r.printSchema()
		return false
	}

	if strings.HasPrefix(strings.ToLower(stmt), "source ") {
		path := strings.TrimSpace(stmt[len("source "):])
		r.runFile(path)
		return false
	}

	r.runQuery(stmt + ";")
	return false
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "commands:")
	fmt.Fprintln(r.out, "  schema;          print the catalog")
	fmt.Fprintln(r.out, "  source <path>;   run queries from a file")
	fmt.Fprintln(r.out, "  help; | h;       show this message")
	fmt.Fprintln(r.out, "  exit; | quit; | q;  leave the REPL")
	fmt.Fprintln(r.out, "  any relational-algebra query ending in ;")
}

func (r *REPL) printSchema() {
	for _, rel := range r.cat.Relations() {
		fmt.Fprintf(r.out, "%s(", rel.Name)
		for i, attr := range rel.Attributes() {
			if i > 0 {
				fmt.Fprint(r.out, ", ")
			}
			fmt.Fprintf(r.out, "%s:%s", attr, rel.Domains()[i])
		}
		fmt.Fprintln(r.out, ")")
	}
}

// runFile loads path, strips comments, joins every line with spaces,
// and evaluates the result as one or more statements.
func (r *REPL) runFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(r.errOut, "error: %v\n", err)
		return
	}
	var joined strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		inString := false
		for i := 0; i < len(line); i++ {
			if line[i] == '\'' {
				inString = !inString
			} else if line[i] == '#' && !inString {
				line = line[:i]
				break
			}
		}
		joined.WriteString(strings.TrimSpace(line))
		joined.WriteByte(' ')
	}

	buf := joined.String()
	for {
		stmt, rest, ok := splitStatement(buf)
		if !ok {
			break
		}
		buf = rest
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		r.runQuery(stmt + ";")
	}
}

func (r *REPL) runQuery(query string) {
	sql, err := raql.Compile(query, r.cat)
	if err != nil {
		fmt.Fprintf(r.errOut, "error: %v\n", err)
		r.logger.Warn("compile failed", zap.String("query", query), zap.Error(err))
		return
	}

	ctx := context.Background()
	headers, rows, err := r.drv.Execute(ctx, sql)
	if err != nil {
		fmt.Fprintf(r.errOut, "error: %v\n", err)
		r.logger.Error("execute failed", zap.String("sql", sql), zap.Error(err))
		return
	}

	r.printTable(headers, rows)
}

func (r *REPL) printTable(headers []driver.Header, rows [][]any) {
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	fmt.Fprintln(r.out, strings.Join(names, " | "))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Fprintln(r.out, strings.Join(cells, " | "))
	}
	fmt.Fprintf(r.out, "%d %s\n", len(rows), rowWord(len(rows)))
}

func rowWord(n int) string {
	if n == 1 {
		return "row"
	}
	return inflection.Plural("row")
}
