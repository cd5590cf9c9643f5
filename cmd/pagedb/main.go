// Package main implements the command-line shell for pagedb.
//
// EDUCATIONAL NOTES:
// ------------------
// This is the entry point for our database. It provides:
// 1. A REPL (Read-Eval-Print Loop) for interactive commands
// 2. Command-line flags for configuration
// 3. Dot commands for shell housekeeping
// 4. An optional HTTP server over the same database
//
// The REPL pattern is common in interactive tools:
// - Read: Get a line from the user
// - Eval: Parse and execute it
// - Print: Display the result
// - Loop: Repeat until the user quits

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
	"github.com/cabewaldrop/pagedb/internal/table"
	"github.com/cabewaldrop/pagedb/internal/web"
)

const (
	version = "0.1.0"
	banner  = `
  pagedb - a paged record store with a B+ tree primary index
  Version %s. Type '.help' for usage hints or 'Quit' to exit.
`
)

// dotCommands are special commands starting with '.'
var dotCommands = map[string]string{
	".help":   "Show this help message",
	".quit":   "Exit the program",
	".exit":   "Exit the program (alias for .quit)",
	".tables": "List all tables",
	".schema": "Show schema for all tables or a specific table",
	".clear":  "Clear the screen",
}

func main() {
	dir := flag.String("dir", "DB", "Database directory")
	name := flag.String("name", "PageDB", "Database name")
	pageSize := flag.Int("page-size", table.DefaultPageCapacity, "Records per page for new tables")
	order := flag.Int("order", 5, "B+ tree order for new tables")
	httpPort := flag.Int("http", 0, "Serve HTTP on this port instead of running the shell (0 = shell)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pagedb version %s\n", version)
		return
	}

	exec, err := executor.Open(*dir, *name, table.Options{PageCapacity: *pageSize, IndexOrder: *order})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	if *httpPort > 0 {
		if err := web.NewServer(*httpPort, exec).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf(banner, version)
	if tables := exec.Database().Tables(); len(tables) > 0 {
		fmt.Printf("Loaded %d table(s): %s\n\n", len(tables), strings.Join(tables, ", "))
	}

	repl(os.Stdin, os.Stdout, exec)
	if err := exec.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving database: %v\n", err)
		os.Exit(1)
	}
}

// repl reads one command per line until Quit, .quit or end of input.
func repl(in io.Reader, out io.Writer, exec *executor.Executor) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "pagedb> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(out, "\nError reading input: %v\n", err)
			}
			fmt.Fprintln(out, "\nGoodbye!")
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if !handleDotCommand(out, line, exec) {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			continue
		}

		if !executeCommand(out, line, exec) {
			return
		}
	}
}

// handleDotCommand processes special dot commands. It returns false when
// the shell should exit.
func handleDotCommand(out io.Writer, cmd string, exec *executor.Executor) bool {
	parts := strings.Fields(cmd)

	switch parts[0] {
	case ".help":
		names := make([]string, 0, len(dotCommands))
		for name := range dotCommands {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(out, "\nAvailable commands:")
		for _, name := range names {
			fmt.Fprintf(out, "  %-12s %s\n", name, dotCommands[name])
		}
		fmt.Fprintln(out, "\nDatabase commands:")
		fmt.Fprintln(out, "  CreateTable name (Col:Integer|Double|String, ...) [Index ON col]")
		fmt.Fprintln(out, "  CREATE TABLE name (col INT, ..., PRIMARY KEY (col))")
		fmt.Fprintln(out, "  DropTable name | ListTables | TableInfo name")
		fmt.Fprintln(out, "  Insert INTO name {(v1, v2, ...), ...}")
		fmt.Fprintln(out, "  Select cols|* FROM name [WHERE condition] [OrderBy col] [DISTINCT]")
		fmt.Fprintln(out, "  Remove FROM name WHERE condition")
		fmt.Fprintln(out, "  Explain Select ... | Explain Remove ...")
		fmt.Fprintln(out, "  Quit")
		fmt.Fprintln(out)

	case ".quit", ".exit":
		return false

	case ".tables":
		tables := exec.Database().Tables()
		if len(tables) == 0 {
			fmt.Fprintln(out, "No tables found.")
			break
		}
		fmt.Fprintln(out, "Tables:")
		for _, name := range tables {
			fmt.Fprintf(out, "  %s\n", name)
		}

	case ".schema":
		names := parts[1:]
		if len(names) == 0 {
			names = exec.Database().Tables()
		}
		for _, name := range names {
			showTableSchema(out, name, exec)
		}

	case ".clear":
		// ANSI escape code to clear screen
		fmt.Fprint(out, "\033[H\033[2J")

	default:
		fmt.Fprintf(out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(out, "Type '.help' for available commands.")
	}
	return true
}

// showTableSchema prints the CreateTable command that would recreate a
// table.
func showTableSchema(out io.Writer, name string, exec *executor.Executor) {
	tbl, err := exec.Database().Table(name)
	if err != nil {
		fmt.Fprintf(out, "Table '%s' not found.\n", name)
		return
	}

	cols := make([]string, len(tbl.Schema.Columns))
	for i, col := range tbl.Schema.Columns {
		cols[i] = fmt.Sprintf("%s:%s", col.Name, col.Type)
	}
	fmt.Fprintf(out, "CreateTable %s (%s)", name, strings.Join(cols, ", "))
	if pk := tbl.Schema.PrimaryKey(); pk != "" {
		fmt.Fprintf(out, " Index ON %s", pk)
	}
	fmt.Fprintln(out)
}

// executeCommand parses and runs one command. It returns false after Quit.
func executeCommand(out io.Writer, input string, exec *executor.Executor) bool {
	result, err := exec.ExecuteString(input)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		if hint := web.GetErrorHint(err.Error()); hint != "" {
			fmt.Fprintf(out, "Hint: %s\n", hint)
		}
		return true
	}

	fmt.Fprint(out, result.String())
	if !strings.HasSuffix(result.String(), "\n") {
		fmt.Fprintln(out)
	}
	return !result.Quit
}
