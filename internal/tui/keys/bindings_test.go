package keys

import (
	"reflect"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestHandleEventPrefersView(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.AddGlobal("quit", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = append(got, "global") }})
	r.AddView("Chat", "quit", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { got = append(got, "view") }})

	q := tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	if !r.HandleEvent("Chat", q) {
		t.Fatal("expected a match in view Chat")
	}
	if !r.HandleEvent("Chats", q) {
		t.Fatal("expected the global binding in view Chats")
	}
	if want := []string{"view", "global"}; !reflect.DeepEqual(got, want) {
		t.Errorf("handlers = %v, want %v", got, want)
	}
	if r.HandleEvent("Chats", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)) {
		t.Error("unbound key should not match")
	}
}

func TestMatchesSpecialKeys(t *testing.T) {
	a := &Action{Key: tcell.KeyEnter}
	if !a.Matches(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)) {
		t.Error("Enter should match")
	}
	if a.Matches(tcell.NewEventKey(tcell.KeyRune, 'e', tcell.ModNone)) {
		t.Error("rune should not match a special key")
	}
}

func TestHintsAreOrdered(t *testing.T) {
	r := NewRegistry()
	noop := func() {}
	r.AddGlobal("quit", &Action{Description: "q:quit", Visible: true, Handler: noop})
	r.AddGlobal("help", &Action{Description: "?:help", Visible: true, Handler: noop})
	r.AddGlobal("hidden", &Action{Description: "x", Handler: noop})
	r.AddView("Status", "post", &Action{Description: "p:post", Visible: true, Handler: noop})
	r.AddGlobal("quit", &Action{Description: "q:back", Visible: true, Handler: noop})

	for i := 0; i < 5; i++ {
		got := r.Hints("Status")
		want := []string{"p:post", "q:back", "?:help"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Hints() = %v, want %v", got, want)
		}
	}
}
