package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--driver", "sqlite", "--dsn", filepath.Join(t.TempDir(), "queue.db"), "--queue", "jobs", "--log-level", "error"}
}

func TestCLIRoundTrip(t *testing.T) {
	base := sqliteArgs(t)
	with := func(args ...string) []string {
		return append(append([]string{}, args...), base...)
	}

	out, err := runCLI(t, "", with("init")...)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Queue jobs initialized (sqlite)") {
		t.Fatalf("unexpected init output %q", out)
	}

	if _, err := runCLI(t, "", with("enqueue", "first", "second")...); err != nil {
		t.Fatalf("enqueue args: %v", err)
	}
	if _, err := runCLI(t, "from stdin", with("enqueue")...); err != nil {
		t.Fatalf("enqueue stdin: %v", err)
	}

	out, err = runCLI(t, "", with("len")...)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Fatalf("expected 3 pending, got %q", out)
	}

	out, err = runCLI(t, "", with("dequeue")...)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if out != "first" {
		t.Fatalf("expected raw payload first, got %q", out)
	}

	out, err = runCLI(t, "", with("consume", "--max", "2", "--poll-interval", "10ms")...)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if out != "second\nfrom stdin\n" {
		t.Fatalf("unexpected consume output %q", out)
	}

	_, err = runCLI(t, "", with("dequeue")...)
	if !errors.Is(err, errQueueEmpty) {
		t.Fatalf("expected errQueueEmpty, got %v", err)
	}
}

func TestCLIDequeueVerbose(t *testing.T) {
	base := sqliteArgs(t)
	with := func(args ...string) []string {
		return append(append([]string{}, args...), base...)
	}

	if _, err := runCLI(t, "", with("init")...); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runCLI(t, "", with("enqueue", "hello")...); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out, err := runCLI(t, "", with("dequeue", "--verbose")...)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !strings.Contains(out, `"hello"`) || !strings.Contains(out, "Payload") {
		t.Fatalf("expected envelope table, got %q", out)
	}
}

func TestCLIRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown driver", args: []string{"len", "--driver", "oracle"}},
		{name: "invalid queue name", args: []string{"len", "--driver", "sqlite", "--queue", "bad name"}},
		{name: "invalid log level", args: []string{"len", "--driver", "sqlite", "--log-level", "loud"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := runCLI(t, "", test.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnqueuePayloads(t *testing.T) {
	payloads, err := enqueuePayloads(strings.NewReader("ignored"), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 2 || string(payloads[0]) != "a" || string(payloads[1]) != "b" {
		t.Fatalf("unexpected payloads %q", payloads)
	}

	payloads, err = enqueuePayloads(strings.NewReader("line one\nline two\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 1 || string(payloads[0]) != "line one\nline two\n" {
		t.Fatalf("expected stdin as one message, got %q", payloads)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "only") {
		t.Fatalf("missing cell in %q", out)
	}
	if !strings.Contains(out, "Name") || strings.Contains(out, "NAME") {
		t.Fatalf("expected headers as written, got %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
