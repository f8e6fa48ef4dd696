package views

import (
	"fmt"

	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() {}

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := colorName(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%[1]s]:[-:-:-]    Command mode        [%[1]s]Esc[-:-:-]    Cancel / Go back
  [%[1]s]/[-:-:-]    Filter chats        [%[1]s]?[-:-:-]      Help
  [%[1]s]q[-:-:-]    Quit / Back         [%[1]s]Ctrl-C[-:-:-] Quit immediately
  [%[1]s]f[-:-:-]    Status feed         [%[1]s]n[-:-:-]      Invite QR code

  [::b]Chat List[-:-:-]

  [%[1]s]Enter[-:-:-]  Open chat          [%[1]s]0[-:-:-]      Show all (clear filter)
  [%[1]s]1-9[-:-:-]    Jump to Nth chat   [%[1]s]a[-:-:-]      Add chat by number
  [%[1]s]j/Down[-:-:-] Move down          [%[1]s]k/Up[-:-:-]   Move up

  [::b]Chat[-:-:-]

  [%[1]s]i[-:-:-]    Focus composer      [%[1]s]d[-:-:-]      Show contact
  [%[1]s]Esc[-:-:-]  Exit composer       [%[1]s]Enter[-:-:-]  Send message (in composer)

  [::b]Commands (: mode, Up/Down recall history)[-:-:-]

  [%[1]s]:add <number|link>[-:-:-]  Add a chat
  [%[1]s]:chat <name|number>[-:-:-] Open a chat
  [%[1]s]:post <file>[-:-:-]        Post a status
  [%[1]s]:name <name>[-:-:-]        Change your name
  [%[1]s]:number <number>[-:-:-]    Change your number
  [%[1]s]:avatar <file>[-:-:-]      Change your picture
  [%[1]s]:invite[-:-:-]             Show your invite
  [%[1]s]:feed[-:-:-]               Status feed
  [%[1]s]:logout[-:-:-]             Sign out
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]         Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]         Quit application
`, kc)

	_, _ = fmt.Fprint(hv, help)
}
