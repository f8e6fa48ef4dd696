package tui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		name  string
		args  string
	}{
		{"q", "q", ""},
		{"  Quit  ", "quit", ""},
		{"add 5551234", "add", "5551234"},
		{"add   lcchat://add/5551234 ", "add", "lcchat://add/5551234"},
		{"name Ada Lovelace", "name", "Ada Lovelace"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd := ParseCommand(tt.input)
			if cmd.Name != tt.name || cmd.Args != tt.args {
				t.Errorf("ParseCommand(%q) = %+v, want {%s %s}", tt.input, cmd, tt.name, tt.args)
			}
		})
	}
}

func TestCommandsRequiringArgs(t *testing.T) {
	for _, name := range []string{"add", "chat", "post", "name", "number", "avatar"} {
		if _, ok := commandUsage[name]; !ok {
			t.Errorf("command %q has no usage text", name)
		}
	}
	for _, name := range []string{"q", "help", "feed", "invite", "logout"} {
		if _, ok := commandUsage[name]; ok {
			t.Errorf("command %q should not require arguments", name)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got, want := expandHome("~/pics/me.png"), filepath.Join(home, "pics", "me.png"); got != want {
		t.Errorf("expandHome = %q, want %q", got, want)
	}
	if got := expandHome("/tmp/me.png"); got != "/tmp/me.png" {
		t.Errorf("absolute path changed to %q", got)
	}
}
