package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ContactInfo displays the partner of a chat.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates a new contact info view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Contact ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ContactInfo) Name() string { return "Contact" }

// Init implements Component.
func (ci *ContactInfo) Init() {}

// Start implements Component.
func (ci *ContactInfo) Start() {}

// Stop implements Component.
func (ci *ContactInfo) Stop() {}

// Hints implements Component.
func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
		{Key: "?", Description: "Help"},
	}
}

// Update renders the chat's partner.
func (ci *ContactInfo) Update(chat rpc.Chat) {
	ci.Clear()

	fg := colorName(ci.theme.FgColor)
	ct := colorName(ci.theme.CounterColor)

	image := chat.Partner.ImageURL
	if image == "" {
		image = "-"
	}
	since := "-"
	if chat.CreatedAt > 0 {
		since = time.UnixMilli(chat.CreatedAt).Format("2006-01-02 15:04")
	}

	text := fmt.Sprintf(
		"\n [%s::b]Name:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Number:[-:-:-]  [%s]%s[-]\n"+
			" [%s::b]User ID:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Picture:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Chat:[-:-:-]    [%s]%s[-]\n"+
			" [%s::b]Since:[-:-:-]   [%s]%s[-]",
		fg, ct, tview.Escape(sanitizeForTerminal(chat.Partner.Name)),
		fg, ct, chat.Partner.Number,
		fg, ct, chat.Partner.UserID,
		fg, ct, tview.Escape(image),
		fg, ct, chat.ChatID,
		fg, ct, since,
	)

	_, _ = fmt.Fprint(ci, text)
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(partnerName(chat))))
}
