package marketplace

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// Redirect-back query parameters set by the payment processor.
const (
	ParamPaymentStatus = "paymentStatus"
	ParamConnectStatus = "connectAccountStatus"
	ParamSessionID     = "session_id"
)

type Family string

const (
	FamilyPayment Family = "payment"
	FamilyConnect Family = "connect"
)

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
)

// Notification is a user-visible message produced by reconciliation.
// Level is "success" or "warning".
type Notification struct {
	Family  Family  `json:"family"`
	Outcome Outcome `json:"outcome"`
	Level   string  `json:"level"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
}

var notifications = map[Family]map[Outcome]Notification{
	FamilyPayment: {
		OutcomeSuccess: {
			Level:   "success",
			Title:   "Payment Successful",
			Message: "Your payment went through. The tool now appears under Rented By Me.",
		},
		OutcomeCancelled: {
			Level:   "warning",
			Title:   "Payment Cancelled",
			Message: "Your payment was cancelled and you have not been charged.",
		},
	},
	FamilyConnect: {
		OutcomeSuccess: {
			Level:   "success",
			Title:   "Stripe Account Connected",
			Message: "Your Stripe account setup is complete. You can now create listings.",
		},
		OutcomeCancelled: {
			Level:   "warning",
			Title:   "Stripe Setup Cancelled",
			Message: "Stripe account setup was cancelled. You can resume it at any time.",
		},
	},
}

// Reconciliation is what a return URL said about out-of-process outcomes.
type Reconciliation struct {
	Notifications []Notification
	// SessionID is the checkout session the processor returned from, if any.
	SessionID string
	// CleanedURL is the URL with every marker parameter removed.
	CleanedURL string
	// Changed is true when CleanedURL differs from the input.
	Changed bool
}

// Reconcile reads the redirect markers from u. Each recognised marker value
// yields exactly one notification; unrecognised values yield none. Marker
// parameters are stripped either way so a reload does not see them again.
// Reconcile never fails: a nil or malformed URL is a no-op.
func Reconcile(u *url.URL) Reconciliation {
	if u == nil {
		return Reconciliation{}
	}
	// ParseQuery keeps every well-formed pair even when it reports an error.
	q, _ := url.ParseQuery(u.RawQuery)

	var rec Reconciliation
	strip := map[string]bool{}

	if _, ok := q[ParamPaymentStatus]; ok {
		strip[ParamPaymentStatus] = true
		strip[ParamSessionID] = true
		rec.SessionID = q.Get(ParamSessionID)
		if n, ok := lookup(FamilyPayment, q.Get(ParamPaymentStatus)); ok {
			rec.Notifications = append(rec.Notifications, n)
		}
	}
	if _, ok := q[ParamConnectStatus]; ok {
		strip[ParamConnectStatus] = true
		if n, ok := lookup(FamilyConnect, q.Get(ParamConnectStatus)); ok {
			rec.Notifications = append(rec.Notifications, n)
		}
	}

	cleaned := *u
	cleaned.RawQuery = stripQuery(u.RawQuery, strip)
	if cleaned.RawQuery == "" {
		cleaned.ForceQuery = false
	}
	rec.CleanedURL = cleaned.String()
	rec.Changed = cleaned.RawQuery != u.RawQuery
	return rec
}

func lookup(f Family, value string) (Notification, bool) {
	n, ok := notifications[f][Outcome(strings.ToLower(strings.TrimSpace(value)))]
	if !ok {
		return Notification{}, false
	}
	n.Family = f
	n.Outcome = Outcome(strings.ToLower(strings.TrimSpace(value)))
	return n, true
}

// stripQuery drops the named keys from a raw query while keeping the order
// and encoding of everything else.
func stripQuery(raw string, keys map[string]bool) string {
	if raw == "" || len(keys) == 0 {
		return raw
	}
	var kept []string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil && keys[k] {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}

// Notifier shows reconciliation outcomes to the user.
type Notifier interface {
	Notify(n Notification)
}

// Reconciler applies Reconcile once per process. Later calls to Run return
// an empty result without notifying.
type Reconciler struct {
	notifier Notifier
	nav      Navigator
	once     sync.Once

	mu      sync.Mutex
	applied []func(Reconciliation)
}

func NewReconciler(notifier Notifier, nav Navigator) *Reconciler {
	return &Reconciler{notifier: notifier, nav: nav}
}

// OnApplied registers fn to observe the reconciliation after it has run.
func (r *Reconciler) OnApplied(fn func(Reconciliation)) {
	r.mu.Lock()
	r.applied = append(r.applied, fn)
	r.mu.Unlock()
}

func (r *Reconciler) Run(u *url.URL) Reconciliation {
	var rec Reconciliation
	r.once.Do(func() {
		rec = Reconcile(u)
		for _, n := range rec.Notifications {
			r.notifier.Notify(n)
		}
		if rec.Changed {
			r.nav.ReplaceURL(rec.CleanedURL)
		}
		r.mu.Lock()
		observers := slices.Clone(r.applied)
		r.mu.Unlock()
		for _, fn := range observers {
			fn(rec)
		}
	})
	return rec
}

// ApplyReconciliation folds a return-URL outcome into the marketplace: a
// finished connect onboarding makes the next gate check reload the account,
// and any payment marker ends the pending checkout attempt.
func (m *Marketplace) ApplyReconciliation(rec Reconciliation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range rec.Notifications {
		switch n.Family {
		case FamilyConnect:
			if n.Outcome == OutcomeSuccess {
				m.accountLoaded = false
			}
		case FamilyPayment:
			m.checkout = CheckoutAttempt{}
		}
	}
}
