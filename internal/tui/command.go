package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// commandUsage lists commands that require an argument. Invite links are
// accepted wherever a number is; the daemon strips the scheme.
var commandUsage = map[string]string{
	"add":    "usage: :add <number|invite link>",
	"chat":   "usage: :chat <name|number>",
	"post":   "usage: :post <file>",
	"name":   "usage: :name <new name>",
	"number": "usage: :number <new number>",
	"avatar": "usage: :avatar <file>",
}

func (a *App) runCommand(cmd Command) {
	if usage, ok := commandUsage[cmd.Name]; ok && cmd.Args == "" {
		a.vm.Flash.Warn(usage)
		return
	}

	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.push(pageHelp)
	case "feed", "status":
		a.push(pageFeed)
	case "invite":
		a.showInvite()
	case "chat":
		if id := a.chatList.FindChat(cmd.Args); id != "" {
			a.openChat(id)
		} else {
			a.vm.Flash.Warn("no chat matches " + cmd.Args)
		}
	case "add":
		go a.addChat(cmd.Args)
	case "post":
		go a.upload(cmd.Args, a.vm.PostStatus)
	case "avatar":
		go a.upload(cmd.Args, a.vm.UploadAvatar)
	case "name":
		name := cmd.Args
		go func() { a.report(a.vm.UpdateProfile(a.ctx, &name, nil), "Name updated") }()
	case "number":
		number := cmd.Args
		go func() { a.report(a.vm.UpdateProfile(a.ctx, nil, &number), "Number updated") }()
	case "logout":
		go func() { a.report(a.vm.SignOut(a.ctx), "Signed out") }()
	default:
		a.vm.Flash.Warn(fmt.Sprintf("unknown command: %s", cmd.Name))
	}
}

func (a *App) addChat(number string) {
	chat, err := a.vm.AddChat(a.ctx, number)
	if err != nil {
		a.vm.Flash.Err(err)
		return
	}
	name := chat.Partner.Name
	if name == "" {
		name = chat.Partner.Number
	}
	a.vm.Flash.Info("Chat with " + name + " added")
}

func (a *App) upload(path string, send func(ctx context.Context, data []byte) error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		a.vm.Flash.Err(err)
		return
	}
	a.report(send(a.ctx, data), "Uploaded "+path)
}

func (a *App) report(err error, ok string) {
	if err != nil {
		a.vm.Flash.Err(err)
		return
	}
	a.vm.Flash.Info(ok)
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/" + rest
		}
	}
	return path
}
