package views

import (
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// SignInView is the sign-in and sign-up form.
type SignInView struct {
	*tview.Form
	theme    *ui.Theme
	onSignIn func(email, password string)
	onSignUp func(name, number, email, password string)
}

// NewSignInView creates a new sign-in form.
func NewSignInView(theme *ui.Theme) *SignInView {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.TableCursorBg)
	form.SetButtonTextColor(theme.TableCursorFg)
	form.SetTitle(" Sign in ")
	form.SetTitleColor(theme.TitleColor)

	sv := &SignInView{Form: form, theme: theme}

	form.AddInputField("Email", "", 40, nil, nil)
	form.AddPasswordField("Password", "", 40, '*', nil)
	form.AddInputField("Name (sign up)", "", 40, nil, nil)
	form.AddInputField("Number (sign up)", "", 20, tview.InputFieldInteger, nil)
	form.AddButton("Sign in", func() {
		if sv.onSignIn != nil {
			sv.onSignIn(sv.text("Email"), sv.text("Password"))
		}
	})
	form.AddButton("Sign up", func() {
		if sv.onSignUp != nil {
			sv.onSignUp(sv.text("Name (sign up)"), sv.text("Number (sign up)"), sv.text("Email"), sv.text("Password"))
		}
	})

	return sv
}

func (sv *SignInView) text(label string) string {
	item := sv.GetFormItemByLabel(label)
	if input, ok := item.(*tview.InputField); ok {
		return input.GetText()
	}
	return ""
}

// Name implements Component.
func (sv *SignInView) Name() string { return "Sign in" }

// Init implements Component.
func (sv *SignInView) Init() {}

// Start implements Component.
func (sv *SignInView) Start() {}

// Stop clears the password so it does not linger on screen.
func (sv *SignInView) Stop() {
	if input, ok := sv.GetFormItemByLabel("Password").(*tview.InputField); ok {
		input.SetText("")
	}
}

// Hints implements Component.
func (sv *SignInView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl-C", Description: "Quit"},
	}
}

// SetOnSignIn sets the sign-in callback.
func (sv *SignInView) SetOnSignIn(fn func(email, password string)) {
	sv.onSignIn = fn
}

// SetOnSignUp sets the sign-up callback.
func (sv *SignInView) SetOnSignUp(fn func(name, number, email, password string)) {
	sv.onSignUp = fn
}
