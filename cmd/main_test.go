package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/DipperMason/rpn-calculator/internal/store"
)

type memRecorder struct {
	entries []store.Entry
	err     error
}

func (m *memRecorder) Record(_ context.Context, e store.Entry) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, e)
	return int64(len(m.entries)), nil
}

func TestRun(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3 4 +\n", "O resultado é 7"},
		{"5 1 2 + 4 * + 3 -\r\n", "O resultado é 14"},
		{"1 0 /", "O resultado é +Inf"},
		{"0.1 0.2 +\n", "O resultado é 0.30000000000000004"},
		{"1 2 3 +\n", "Quantidade de termos errada"},
		{"3 x +\n", "Operador inválido"},
		{"", "Operador inválido"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if code := run(context.Background(), strings.NewReader(tt.in), &out, options{}); code != 0 {
			t.Errorf("run(%q) exit %d", tt.in, code)
		}
		want := "Insira a expressão RNP:\n" + tt.want + "\n"
		if out.String() != want {
			t.Errorf("run(%q) printed %q, want %q", tt.in, out.String(), want)
		}
	}
}

func TestRunStrict(t *testing.T) {
	var out bytes.Buffer
	if code := run(context.Background(), strings.NewReader("+\n"), &out, options{strict: true}); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
	if code := run(context.Background(), strings.NewReader("1\n"), &out, options{strict: true}); code != 0 {
		t.Fatalf("exit %d, want 0", code)
	}
}

func TestRunReadError(t *testing.T) {
	var out bytes.Buffer
	in := iotest.ErrReader(errors.New("tty gone"))
	if code := run(context.Background(), in, &out, options{}); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.HasSuffix(out.String(), "Não foi possível ler a expressão\n") {
		t.Fatalf("output %q", out.String())
	}
}

func TestRunRecords(t *testing.T) {
	rec := &memRecorder{}
	var out bytes.Buffer
	run(context.Background(), strings.NewReader("2 3 *\n"), &out, options{rec: rec, user: "ana"})
	run(context.Background(), strings.NewReader("2 *\n"), &out, options{rec: rec, user: "ana"})

	if len(rec.entries) != 2 {
		t.Fatalf("recorded %d entries", len(rec.entries))
	}
	if e := rec.entries[0]; e.Expression != "2 3 *" || e.Result != 6 || e.ErrorKind != "" || e.User != "ana" {
		t.Errorf("first entry = %+v", e)
	}
	if e := rec.entries[1]; e.ErrorKind != "terms_quantity_invalid" {
		t.Errorf("second entry = %+v", e)
	}

	// a failing recorder does not change the outcome
	rec.err = errors.New("disk full")
	out.Reset()
	if code := run(context.Background(), strings.NewReader("1 1 +\n"), &out, options{rec: rec}); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(out.String(), "O resultado é 2") {
		t.Fatalf("output %q", out.String())
	}
}
