package views

import (
	"fmt"

	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// InviteView shows the signed-in user's invite link as a QR code.
type InviteView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewInviteView creates a new invite view.
func NewInviteView(theme *ui.Theme) *InviteView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Invite ")
	tv.SetTitleColor(theme.TitleColor)

	return &InviteView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (iv *InviteView) Name() string { return "Invite" }

// Init implements Component.
func (iv *InviteView) Init() {}

// Start implements Component.
func (iv *InviteView) Start() {}

// Stop implements Component.
func (iv *InviteView) Stop() {}

// Hints implements Component.
func (iv *InviteView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// ShowInvite renders link as a QR code with the number below it.
func (iv *InviteView) ShowInvite(link, number string) {
	iv.Clear()
	qr, err := ui.RenderQR(link)
	if err != nil {
		iv.ShowMessage("QR generation failed: " + err.Error())
		return
	}
	_, _ = fmt.Fprintf(iv, "\n  Scan to add me:\n\n%s\n  [::b]%s[-:-:-]\n  [::d]%s[-:-:-]",
		qr, tview.Escape(number), tview.Escape(link))
}

// ShowMessage displays a status message.
func (iv *InviteView) ShowMessage(msg string) {
	iv.Clear()
	_, _ = fmt.Fprintf(iv, "\n\n%s", tview.Escape(msg))
}
