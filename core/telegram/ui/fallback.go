package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, registered callbacks or an active dialog.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Registrar receives fallback handlers.
type Registrar interface {
	SetCallbackNotFound(h tele.HandlerFunc)
	SetTextFallback(h tele.HandlerFunc)
}

// Install wires the provider's handlers into reg.
func Install(reg Registrar, p FallbackProvider) {
	if reg == nil || p == nil {
		return
	}
	reg.SetCallbackNotFound(p.UnknownCallback())
	reg.SetTextFallback(p.UnknownText())
}
