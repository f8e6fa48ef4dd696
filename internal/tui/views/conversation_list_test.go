package views

import (
	"testing"

	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/tui/ui"
)

func testChats() []rpc.Chat {
	return []rpc.Chat{
		{ChatID: "c1", Partner: rpc.Profile{UserID: "u1", Name: "Ada", Number: "5551000"}},
		{ChatID: "c2", Partner: rpc.Profile{UserID: "u2", Name: "Grace Hopper", Number: "5552000"}},
		{ChatID: "c3", Partner: rpc.Profile{UserID: "u3", Number: "5553000"}},
	}
}

func TestConversationListIndexAndFilter(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update(testChats())

	if got := cl.ChatByIndex(2); got != "c2" {
		t.Errorf("ChatByIndex(2) = %q, want c2", got)
	}
	for _, n := range []int{0, 4} {
		if got := cl.ChatByIndex(n); got != "" {
			t.Errorf("ChatByIndex(%d) = %q, want empty", n, got)
		}
	}

	cl.SetFilter("grace")
	if got := cl.ChatByIndex(1); got != "c2" {
		t.Errorf("filtered ChatByIndex(1) = %q, want c2", got)
	}
	cl.SetFilter("5553")
	if got := cl.ChatByIndex(1); got != "c3" {
		t.Errorf("number filter ChatByIndex(1) = %q, want c3", got)
	}
	cl.ClearFilter()
	if got := cl.ChatByIndex(3); got != "c3" {
		t.Errorf("ChatByIndex(3) after clear = %q, want c3", got)
	}
}

func TestConversationListFindChat(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update(testChats())

	tests := []struct {
		query string
		want  string
	}{
		{"5552000", "c2"},
		{"ada", "c1"},
		{"hopper", "c2"},
		{"nobody", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := cl.FindChat(tt.query); got != tt.want {
				t.Errorf("FindChat(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestPartnerNameFallback(t *testing.T) {
	chats := testChats()
	if got := partnerName(chats[2]); got != "5553000" {
		t.Errorf("partnerName without name = %q, want number", got)
	}
	if got := partnerName(rpc.Chat{Partner: rpc.Profile{UserID: "u9"}}); got != "u9" {
		t.Errorf("partnerName without name or number = %q, want u9", got)
	}
}

func TestFeedViewCount(t *testing.T) {
	fv := NewFeedView(ui.DefaultTheme())
	fv.Update(&rpc.Feed{
		Mine: []rpc.Status{{ID: "s1", MediaURL: "http://m/1"}},
		Others: []rpc.AuthorFeed{
			{Author: rpc.Profile{Name: "Ada"}, Posts: []rpc.Status{{ID: "s2"}, {ID: "s3"}}},
		},
	})
	if fv.Count() != 3 {
		t.Errorf("Count() = %d, want 3", fv.Count())
	}
	fv.Update(nil)
	if fv.Count() != 0 {
		t.Errorf("Count() after nil feed = %d", fv.Count())
	}
}
