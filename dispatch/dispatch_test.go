package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/burrow/journal"
)

type call struct {
	argument string
	body     string
}

func newRecorder() (*Dispatcher, *[]call) {
	var calls []call
	d := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.Register("telegram", HandlerFunc(func(_ context.Context, argument, body string) error {
		calls = append(calls, call{argument, body})
		return nil
	}))
	return d, &calls
}

func TestDispatchRoutesRecognizedCommand(t *testing.T) {
	d, calls := newRecorder()

	err := d.Dispatch(context.Background(), journal.Entry{Title: "telegram alice hello there"})
	if err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(*calls))
	}
	got := (*calls)[0]
	if got.argument != "alice" || got.body != "hello there" {
		t.Fatalf("handler got (%q, %q), want (alice, hello there)", got.argument, got.body)
	}
}

func TestDispatchNormalizesKeyword(t *testing.T) {
	d, calls := newRecorder()

	if err := d.Dispatch(context.Background(), journal.Entry{Title: "Telegram Bob hi"}); err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(*calls))
	}
	if (*calls)[0].argument != "Bob" {
		t.Fatalf("argument = %q, want Bob verbatim", (*calls)[0].argument)
	}
}

func TestDispatchIgnoresUnknownKeyword(t *testing.T) {
	d, calls := newRecorder()

	if err := d.Dispatch(context.Background(), journal.Entry{Title: "note buy milk"}); err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 0 {
		t.Fatal("unknown keyword reached a handler")
	}
}

func TestDispatchDropsMalformedTitle(t *testing.T) {
	d, calls := newRecorder()

	for _, title := range []string{"hi", "telegram alice", ""} {
		if err := d.Dispatch(context.Background(), journal.Entry{Title: title}); err != nil {
			t.Fatalf("Dispatch(%q): malformed titles are dropped, not errors: %v", title, err)
		}
	}
	if len(*calls) != 0 {
		t.Fatal("malformed title reached a handler")
	}
}

func TestDispatchIgnoresStructuredEntries(t *testing.T) {
	d, calls := newRecorder()

	entry := journal.Entry{Title: "telegram alice hello there", HasStructuredMarker: true}
	if err := d.Dispatch(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 0 {
		t.Fatal("structured entry reached a handler")
	}
}

func TestDispatchRejectsNonAlphabeticKeyword(t *testing.T) {
	d, calls := newRecorder()
	d.Register("telegram2", HandlerFunc(func(context.Context, string, string) error {
		t.Fatal("non-alphabetic keyword must never route")
		return nil
	}))

	if err := d.Dispatch(context.Background(), journal.Entry{Title: "telegram2 alice hi"}); err != nil {
		t.Fatal(err)
	}
	if len(*calls) != 0 {
		t.Fatal("unexpected handler call")
	}
}
