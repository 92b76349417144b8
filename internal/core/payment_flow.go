package core

import (
	"net/url"
	"strings"
)

// RedirectState is where a checkout stands according to the approval page's last navigation.
type RedirectState int

const (
	RedirectPending RedirectState = iota
	RedirectApproved
	RedirectCancelled
)

func (s RedirectState) String() string {
	switch s {
	case RedirectApproved:
		return "approved"
	case RedirectCancelled:
		return "cancelled"
	}
	return "pending"
}

const (
	redirectParam    = "paymentId"
	redirectSuccess  = "success"
	redirectCancel   = "cancel"
	paypalTokenParam = "token"
)

// ClassifyRedirect maps a URL reached from the approval page onto a checkout state.
// Only URLs under returnBase count. The approval page itself and anything else is pending.
// An approved redirect that names a different order than orderID is treated as pending.
func ClassifyRedirect(raw, returnBase, orderID string) RedirectState {
	u, err := url.Parse(raw)
	if err != nil || !sameEndpoint(u, returnBase) {
		return RedirectPending
	}
	q := u.Query()
	switch q.Get(redirectParam) {
	case redirectCancel:
		return RedirectCancelled
	case redirectSuccess:
		if token := q.Get(paypalTokenParam); token != "" && orderID != "" && token != orderID {
			return RedirectPending
		}
		return RedirectApproved
	}
	return RedirectPending
}

func sameEndpoint(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, b.Host) && strings.TrimRight(u.Path, "/") == strings.TrimRight(b.Path, "/")
}

// redirectURL appends the flow sentinel to the configured return endpoint.
func redirectURL(base, sentinel string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(redirectParam, sentinel)
	u.RawQuery = q.Encode()
	return u.String()
}
