package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lcchat/internal/tui/client"
	"github.com/matheus3301/lcchat/internal/tui/keys"
	"github.com/matheus3301/lcchat/internal/tui/model"
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/matheus3301/lcchat/internal/tui/views"
	"github.com/rivo/tview"
	grpcstatus "google.golang.org/grpc/status"
)

// Page names, also shown in the breadcrumb bar.
const (
	pageChats   = "Chats"
	pageThread  = "Chat"
	pageFeed    = "Status"
	pageInvite  = "Invite"
	pageSignIn  = "Sign in"
	pageHelp    = "Help"
	pageContact = "Contact"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	pages    *ui.Pages
	vm       *model.ViewModel
	registry *keys.Registry
	session  string
	started  time.Time

	sessionInfo *ui.SessionInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	flashBar    *ui.FlashBar
	prompt      *ui.Prompt
	body        *tview.Flex
	promptShown bool

	chatList *views.ConversationList
	thread   *views.MessageThread
	feed     *views.FeedView
	invite   *views.InviteView
	signIn   *views.SignInView
	help     *views.HelpView
	contact  *views.ContactInfo

	components map[string]ui.Component
	focus      map[string]tview.Primitive

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		theme:       theme,
		pages:       ui.NewPages(),
		vm:          model.NewViewModel(c),
		registry:    keys.NewRegistry(),
		session:     sessionName,
		started:     time.Now(),
		sessionInfo: ui.NewSessionInfo(theme),
		menu:        ui.NewMenu(theme),
		crumbs:      ui.NewCrumbs(theme),
		flashBar:    ui.NewFlashBar(theme),
		prompt:      ui.NewPrompt(theme),
		chatList:    views.NewConversationList(theme),
		thread:      views.NewMessageThread(theme),
		feed:        views.NewFeedView(theme),
		invite:      views.NewInviteView(theme),
		signIn:      views.NewSignInView(theme),
		help:        views.NewHelpView(theme),
		contact:     views.NewContactInfo(theme),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.components = map[string]ui.Component{
		pageChats:   a.chatList,
		pageThread:  a.thread,
		pageFeed:    a.feed,
		pageInvite:  a.invite,
		pageSignIn:  a.signIn,
		pageHelp:    a.help,
		pageContact: a.contact,
	}
	a.focus = map[string]tview.Primitive{
		pageChats:   a.chatList,
		pageThread:  a.thread.Messages(),
		pageFeed:    a.feed,
		pageInvite:  a.invite,
		pageSignIn:  a.signIn,
		pageHelp:    a.help,
		pageContact: a.contact,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.back()
				return
			}
			a.Stop()
		},
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "?:help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Handler: func() { a.showPrompt(ui.PromptCommand, "") },
	})
	a.registry.AddGlobal("feed", &keys.Action{
		Rune: 'f', Key: tcell.KeyRune,
		Description: "f:status", Visible: true,
		Handler: func() { a.push(pageFeed) },
	})
	a.registry.AddGlobal("invite", &keys.Action{
		Rune: 'n', Key: tcell.KeyRune,
		Description: "n:invite", Visible: true,
		Handler: a.showInvite,
	})

	a.registry.AddView(pageChats, "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Handler: func() { a.showPrompt(ui.PromptFilter, "") },
	})
	a.registry.AddView(pageChats, "add", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Handler: func() { a.showPrompt(ui.PromptCommand, "add ") },
	})
	a.registry.AddView(pageThread, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, "contact", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Handler: func() {
			a.contact.Update(a.thread.Chat())
			a.push(pageContact)
		},
	})
	a.registry.AddView(pageFeed, "post", &keys.Action{
		Rune: 'p', Key: tcell.KeyRune,
		Handler: func() { a.showPrompt(ui.PromptCommand, "post ") },
	})
}

func (a *App) setupCallbacks() {
	a.crumbs.SetLabeler(func(page string) string {
		if page != pageThread {
			return ""
		}
		p := a.thread.Chat().Partner
		if p.Name == "" {
			p.Name = p.Number
		}
		return pageThread + ": " + p.Name
	})
	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		if c, ok := a.components[a.pages.Current()]; ok {
			a.menu.Update(c.Hints())
		}
	})

	a.chatList.SetSelectedFunc(func(row, _ int) {
		if id := a.chatList.ChatByIndex(row); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			if err := a.vm.SendText(a.ctx, text); err != nil {
				a.vm.Flash.Err(err)
			}
		}()
	})

	a.signIn.SetOnSignIn(func(email, password string) {
		go func() {
			if err := a.vm.SignIn(a.ctx, email, password); err != nil {
				a.vm.Flash.Err(err)
			}
		}()
	})
	a.signIn.SetOnSignUp(func(name, number, email, password string) {
		go func() {
			if err := a.vm.SignUp(a.ctx, name, number, email, password); err != nil {
				a.vm.Flash.Err(err)
			}
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c.(tview.Primitive), true, false)
	}

	header := tview.NewFlex().
		AddItem(a.sessionInfo, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.handleKey)
	a.pages.Reset(pageSignIn)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	current := a.pages.Current()

	if event.Key() == tcell.KeyEscape {
		if a.promptShown {
			return event
		}
		if a.app.GetFocus() == a.thread.Composer() {
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
		if current != pageSignIn && a.pages.Depth() > 1 {
			a.back()
			return nil
		}
		return event
	}

	// Let text input widgets handle all keys normally.
	switch a.app.GetFocus().(type) {
	case *tview.InputField, *tview.Button:
		return event
	}
	if current == pageSignIn {
		return event
	}

	if current == pageChats && event.Key() == tcell.KeyRune && event.Rune() >= '0' && event.Rune() <= '9' {
		if event.Rune() == '0' {
			a.chatList.ClearFilter()
		} else if id := a.chatList.ChatByIndex(int(event.Rune() - '0')); id != "" {
			a.openChat(id)
		}
		return nil
	}

	if a.registry.HandleEvent(current, event) {
		return nil
	}
	return event
}

func (a *App) push(name string) {
	if a.pages.Current() == name {
		return
	}
	a.pages.Push(name)
	a.app.SetFocus(a.focus[name])
}

func (a *App) back() {
	top := a.pages.Pop()
	if c, ok := a.components[top]; ok {
		c.Stop()
	}
	if top == pageThread {
		go a.vm.CloseChat(a.ctx)
	}
	a.app.SetFocus(a.focus[a.pages.Current()])
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	if a.promptShown {
		return
	}
	a.promptShown = true
	a.prompt.Activate(mode, text)
	a.body.AddItem(a.prompt, 3, 0, true)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if !a.promptShown {
		return
	}
	a.promptShown = false
	a.body.RemoveItem(a.prompt)
	a.app.SetFocus(a.focus[a.pages.Current()])
}

func (a *App) openChat(chatID string) {
	chat, ok := a.vm.Chat(chatID)
	if !ok {
		a.vm.Flash.Warn("chat not found")
		return
	}
	a.thread.SetChat(chat)
	a.vm.OpenChat(a.ctx, chatID)
	if a.pages.PopTo(pageThread) {
		a.app.SetFocus(a.focus[pageThread])
		return
	}
	a.push(pageThread)
}

func (a *App) showInvite() {
	a.invite.ShowMessage("Loading invite...")
	a.push(pageInvite)
	go func() {
		inv, err := a.vm.Invite(a.ctx)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.invite.ShowMessage(grpcstatus.Convert(err).Message())
				return
			}
			a.invite.ShowInvite(inv.Link, inv.Number)
		})
	}()
}

// render copies the view model into the views. It runs on the UI goroutine.
func (a *App) render() {
	state := a.vm.State()
	switch {
	case state == model.StateSignedOut && a.pages.Current() != pageSignIn:
		a.pages.Reset(pageSignIn)
		a.app.SetFocus(a.signIn)
	case (state == model.StateReady || state == model.StateDegraded) && a.pages.Current() == pageSignIn:
		a.signIn.Stop()
		a.pages.Reset(pageChats)
		a.app.SetFocus(a.chatList)
	}

	a.chatList.Update(a.vm.Chats())
	a.feed.Update(a.vm.Feed())
	if a.vm.ActiveChat() != "" {
		a.thread.Update(a.vm.Messages())
	}

	data := &ui.SessionData{
		Session:  a.session,
		State:    state,
		Chats:    len(a.vm.Chats()),
		Statuses: a.feed.Count(),
		Uptime:   time.Since(a.started),
	}
	if p := a.vm.Profile(); p != nil {
		data.Name, data.Number = p.Name, p.Number
	}
	a.sessionInfo.Update(data)
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		if err := a.vm.LoadSessionStatus(a.ctx); err != nil {
			a.vm.Flash.Err(err)
		}
		a.vm.Follow(a.ctx)
	}()
	go a.refreshLoop()
	return a.app.Run()
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case msg := <-a.vm.Flash.Watch():
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(&msg) })
		case <-ticker.C:
			// Expired flashes clear themselves here.
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.vm.Flash.GetMessage()) })
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
