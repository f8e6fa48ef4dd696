package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/lcchat/internal/lock"
	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/session"
	"github.com/matheus3301/lcchat/internal/tui/client"
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type command struct {
	usage  string
	help   string
	minArg int
	follow bool
	run    func(ctx context.Context, c *client.Client, args []string, out *output) error
}

var commands = map[string]command{
	"status":   {usage: "status", help: "Show session status", run: cmdStatus},
	"signup":   {usage: "signup <name> <number> <email>", help: "Create an account and sign in", minArg: 3, run: cmdSignUp},
	"login":    {usage: "login <email>", help: "Sign in", minArg: 1, run: cmdLogin},
	"logout":   {usage: "logout", help: "Sign out", run: cmdLogout},
	"whoami":   {usage: "whoami", help: "Show the signed-in profile", run: cmdWhoami},
	"profile":  {usage: "profile <name|number|image> <value>", help: "Update the profile", minArg: 2, run: cmdProfile},
	"invite":   {usage: "invite", help: "Show the invite link as a QR code", run: cmdInvite},
	"chats":    {usage: "chats [--follow]", help: "List chats", follow: true, run: cmdChats},
	"add":      {usage: "add <number|link>", help: "Start a chat", minArg: 1, run: cmdAdd},
	"find":     {usage: "find <number>", help: "Look up the chat with a number", minArg: 1, run: cmdFind},
	"send":     {usage: "send <chat> <text...>", help: "Send a message", minArg: 2, run: cmdSend},
	"messages": {usage: "messages <chat> [--follow]", help: "Show a chat's messages", minArg: 1, follow: true, run: cmdMessages},
	"post":     {usage: "post <file>", help: "Post a status image", minArg: 1, run: cmdPost},
	"feed":     {usage: "feed [--follow]", help: "Show the status feed", follow: true, run: cmdFeed},
}

var order = []string{"status", "signup", "login", "logout", "whoami", "profile", "invite", "chats", "add", "find", "send", "messages", "post", "feed", "sessions"}

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	timeoutFlag := flag.Duration("timeout", 10*time.Second, "timeout for one-shot commands")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	out := &output{json: *jsonFlag}

	if args[0] == "sessions" {
		if err := cmdSessions(out); err != nil {
			fail(err)
		}
		return
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	rest, follow := stripFollow(args[1:])
	if follow && !cmd.follow {
		fmt.Fprintf(os.Stderr, "usage: lcchatctl %s\n", cmd.usage)
		os.Exit(1)
	}
	if len(rest) < cmd.minArg {
		fmt.Fprintf(os.Stderr, "usage: lcchatctl %s\n", cmd.usage)
		os.Exit(1)
	}

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if follow {
		out.follow = true
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()
	}

	if err := cmd.run(ctx, c, rest, out); err != nil {
		if ctx.Err() != nil && follow {
			return
		}
		fail(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: lcchatctl [--session <name>] [--json] [--timeout <d>] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range order {
		if name == "sessions" {
			fmt.Fprintf(os.Stderr, "  %-38s %s\n", "sessions", "List local sessions")
			continue
		}
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-38s %s\n", c.usage, c.help)
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Passwords are read from LCCHAT_PASSWORD or prompted for.")
}

// stripFollow removes --follow/-f from args.
func stripFollow(args []string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	follow := false
	for _, a := range args {
		if a == "--follow" || a == "-f" {
			follow = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, follow
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", s.Message(), s.Code())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

type output struct {
	json   bool
	follow bool
}

// print writes v as JSON, or calls text for humans.
func (o *output) print(v any, text func()) {
	if !o.json {
		text()
		return
	}
	enc := json.NewEncoder(os.Stdout)
	if !o.follow {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func password() (string, error) {
	if p := os.Getenv("LCCHAT_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal to prompt for a password, set LCCHAT_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func printProfile(p *rpc.Profile) {
	fmt.Printf("Name:    %s\n", p.Name)
	fmt.Printf("Number:  %s\n", p.Number)
	fmt.Printf("User:    %s\n", p.UserID)
	if p.ImageURL != "" {
		fmt.Printf("Image:   %s\n", p.ImageURL)
	}
}

func cmdStatus(ctx context.Context, c *client.Client, _ []string, out *output) error {
	resp, err := c.Session.GetSessionStatus(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	out.print(resp, func() {
		fmt.Printf("Session: %s\n", resp.Session)
		fmt.Printf("State:   %s\n", resp.State)
		fmt.Printf("Uptime:  %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
		if resp.SignedIn {
			fmt.Printf("User:    %s\n", resp.UserID)
		}
		if resp.LastError != "" {
			fmt.Printf("Error:   %s\n", resp.LastError)
		}
	})
	return nil
}

func cmdSignUp(ctx context.Context, c *client.Client, args []string, out *output) error {
	pw, err := password()
	if err != nil {
		return err
	}
	resp, err := c.Session.SignUp(ctx, &rpc.SignUpRequest{Name: args[0], Number: args[1], Email: args[2], Password: pw})
	if err != nil {
		return err
	}
	out.print(resp, func() { printProfile(&resp.Profile) })
	return nil
}

func cmdLogin(ctx context.Context, c *client.Client, args []string, out *output) error {
	pw, err := password()
	if err != nil {
		return err
	}
	resp, err := c.Session.SignIn(ctx, &rpc.SignInRequest{Email: args[0], Password: pw})
	if err != nil {
		return err
	}
	out.print(resp, func() { printProfile(&resp.Profile) })
	return nil
}

func cmdLogout(ctx context.Context, c *client.Client, _ []string, out *output) error {
	if _, err := c.Session.SignOut(ctx, &rpc.Empty{}); err != nil {
		return err
	}
	out.print(map[string]bool{"signed_out": true}, func() { fmt.Println("Signed out.") })
	return nil
}

func cmdWhoami(ctx context.Context, c *client.Client, _ []string, out *output) error {
	p, err := c.Session.GetProfile(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	out.print(p, func() { printProfile(p) })
	return nil
}

func cmdProfile(ctx context.Context, c *client.Client, args []string, out *output) error {
	var (
		p   *rpc.Profile
		err error
	)
	value := strings.Join(args[1:], " ")
	switch args[0] {
	case "name":
		p, err = c.Session.UpdateProfile(ctx, &rpc.UpdateProfileRequest{Name: &value})
	case "number":
		p, err = c.Session.UpdateProfile(ctx, &rpc.UpdateProfileRequest{Number: &value})
	case "image":
		data, rerr := os.ReadFile(value)
		if rerr != nil {
			return rerr
		}
		p, err = c.Session.UploadProfileImage(ctx, &rpc.UploadRequest{Data: data})
	default:
		return fmt.Errorf("unknown profile field %q, want name, number or image", args[0])
	}
	if err != nil {
		return err
	}
	out.print(p, func() { printProfile(p) })
	return nil
}

func cmdInvite(ctx context.Context, c *client.Client, _ []string, out *output) error {
	inv, err := c.Session.GetInvite(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	if out.json {
		out.print(inv, nil)
		return nil
	}
	qr, err := ui.RenderQR(inv.Link)
	if err != nil {
		return err
	}
	fmt.Print(qr)
	fmt.Printf("\n%s\n", inv.Link)
	return nil
}

func printChats(list *rpc.ChatList) {
	if len(list.Chats) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for _, ch := range list.Chats {
		fmt.Printf("%-38s %-20s %s\n", ch.ChatID, ch.Partner.Name, ch.Partner.Number)
	}
}

func cmdChats(ctx context.Context, c *client.Client, _ []string, out *output) error {
	if !out.follow {
		list, err := c.Chat.ListChats(ctx, &rpc.Empty{})
		if err != nil {
			return err
		}
		out.print(list, func() { printChats(list) })
		return nil
	}
	stream, err := c.Chat.WatchChats(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	return follow(stream, func(list *rpc.ChatList) {
		out.print(list, func() {
			fmt.Printf("-- %s\n", time.Now().Format(time.TimeOnly))
			printChats(list)
		})
	})
}

func cmdAdd(ctx context.Context, c *client.Client, args []string, out *output) error {
	ch, err := c.Chat.AddChat(ctx, &rpc.NumberRequest{Number: args[0]})
	if err != nil {
		return err
	}
	out.print(ch, func() { fmt.Printf("Chat %s with %s (%s)\n", ch.ChatID, ch.Partner.Name, ch.Partner.Number) })
	return nil
}

func cmdFind(ctx context.Context, c *client.Client, args []string, out *output) error {
	resp, err := c.Chat.FindChat(ctx, &rpc.NumberRequest{Number: args[0]})
	if err != nil {
		return err
	}
	out.print(resp, func() {
		if !resp.Found {
			fmt.Printf("No chat with %s.\n", args[0])
			return
		}
		fmt.Printf("Chat %s with %s\n", resp.Chat.ChatID, resp.Chat.Partner.Name)
	})
	return nil
}

func cmdSend(ctx context.Context, c *client.Client, args []string, out *output) error {
	m, err := c.Chat.SendMessage(ctx, &rpc.SendMessageRequest{ChatID: args[0], Body: strings.Join(args[1:], " ")})
	if err != nil {
		return err
	}
	out.print(m, func() { fmt.Printf("Sent %s\n", m.ID) })
	return nil
}

func printMessages(list *rpc.MessageList) {
	for _, m := range list.Messages {
		who := "them"
		if m.Mine {
			who = "me"
		}
		fmt.Printf("[%s] %-4s %s\n", time.UnixMilli(m.SentAt).Format("2006-01-02 15:04"), who, m.Body)
	}
}

func cmdMessages(ctx context.Context, c *client.Client, args []string, out *output) error {
	req := &rpc.ChatRequest{ChatID: args[0]}
	if !out.follow {
		list, err := c.Chat.ListMessages(ctx, req)
		if err != nil {
			return err
		}
		out.print(list, func() { printMessages(list) })
		return nil
	}
	stream, err := c.Chat.WatchMessages(ctx, req)
	if err != nil {
		return err
	}
	seen := 0
	return follow(stream, func(list *rpc.MessageList) {
		// Snapshots repeat the whole history; text mode prints only the tail.
		if seen > len(list.Messages) {
			seen = 0
		}
		tail := &rpc.MessageList{ChatID: list.ChatID, Messages: list.Messages[seen:]}
		seen = len(list.Messages)
		out.print(list, func() { printMessages(tail) })
	})
}

func cmdPost(ctx context.Context, c *client.Client, args []string, out *output) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	st, err := c.Status.PostStatus(ctx, &rpc.UploadRequest{Data: data})
	if err != nil {
		return err
	}
	out.print(st, func() { fmt.Printf("Posted %s\n", st.MediaURL) })
	return nil
}

func printFeed(f *rpc.Feed) {
	fmt.Println("My status")
	if len(f.Mine) == 0 {
		fmt.Println("  (none)")
	}
	for _, s := range f.Mine {
		fmt.Printf("  %s  %s\n", time.UnixMilli(s.PostedAt).Format(time.TimeOnly), s.MediaURL)
	}
	for _, a := range f.Others {
		fmt.Printf("%s (%s)\n", a.Author.Name, a.Author.Number)
		for _, s := range a.Posts {
			fmt.Printf("  %s  %s\n", time.UnixMilli(s.PostedAt).Format(time.TimeOnly), s.MediaURL)
		}
	}
}

// cmdFeed always reads the stream; the first snapshot is the current feed.
func cmdFeed(ctx context.Context, c *client.Client, _ []string, out *output) error {
	stream, err := c.Status.WatchFeed(ctx, &rpc.Empty{})
	if err != nil {
		return err
	}
	if !out.follow {
		f, err := stream.Recv()
		if err != nil {
			return err
		}
		out.print(f, func() { printFeed(f) })
		return nil
	}
	return follow(stream, func(f *rpc.Feed) {
		out.print(f, func() {
			fmt.Printf("-- %s\n", time.Now().Format(time.TimeOnly))
			printFeed(f)
		})
	})
}

func follow[T any](stream grpc.ServerStreamingClient[T], each func(*T)) error {
	for {
		v, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		each(v)
	}
}

type sessionInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"daemon_running"`
	PID     int    `json:"pid,omitempty"`
}

func cmdSessions(out *output) error {
	names, err := session.List()
	if err != nil {
		return err
	}
	infos := make([]sessionInfo, 0, len(names))
	for _, name := range names {
		info := sessionInfo{Name: name, Path: session.Dir(name)}
		if h, ok, err := lock.Holder(session.LockPath(name)); err == nil && ok {
			info.Running, info.PID = true, h.PID
		}
		infos = append(infos, info)
	}
	out.print(infos, func() {
		if len(infos) == 0 {
			fmt.Println("No sessions found.")
			return
		}
		for _, s := range infos {
			running := "stopped"
			if s.Running {
				running = fmt.Sprintf("running, pid %d", s.PID)
			}
			fmt.Printf("%-20s %s (%s)\n", s.Name, s.Path, running)
		}
	})
	return nil
}
