package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
	"github.com/cabewaldrop/pagedb/internal/table"
)

func runREPL(t *testing.T, input string) (string, *executor.Executor) {
	t.Helper()
	exec, err := executor.Open(t.TempDir(), "ShellDB", table.Options{PageCapacity: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var out bytes.Buffer
	repl(strings.NewReader(input), &out, exec)
	return out.String(), exec
}

func TestREPLSession(t *testing.T) {
	out, _ := runREPL(t, strings.Join([]string{
		"CreateTable people (ID:Integer, Name:String) Index ON ID",
		`Insert INTO people {(1, "Ann"), (2, "Bob")}`,
		"Select Name FROM people WHERE ID = 2",
		"Quit",
		"Select * FROM people",
	}, "\n"))

	for _, want := range []string{"Table 'people' created", "2 row(s) inserted", "| Bob  |", "(1 rows)", "Bye"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "(2 rows)") {
		t.Error("commands after Quit should not run")
	}
}

func TestREPLErrorsAndHints(t *testing.T) {
	out, _ := runREPL(t, "Select * FROM missing\nFrobnicate\n")

	if !strings.Contains(out, "Error: not found: table missing") {
		t.Errorf("expected not found error:\n%s", out)
	}
	if !strings.Contains(out, "Hint: Check table name spelling") {
		t.Errorf("expected hint:\n%s", out)
	}
	if !strings.Contains(out, "Goodbye!") {
		t.Error("expected goodbye at end of input")
	}
}

func TestREPLDotCommands(t *testing.T) {
	out, _ := runREPL(t, strings.Join([]string{
		".tables",
		"CreateTable t (A:Integer, B:Double)",
		".tables",
		".schema t",
		".schema nope",
		".help",
		".bogus",
		".quit",
		".tables",
	}, "\n"))

	for _, want := range []string{
		"No tables found.",
		"Tables:\n  t\n",
		"CreateTable t (A:Integer, B:Double)\n",
		"Table 'nope' not found.",
		"Available commands:",
		"Unknown command: .bogus",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Count(out, "Tables:") != 1 {
		t.Error("commands after .quit should not run")
	}
}
