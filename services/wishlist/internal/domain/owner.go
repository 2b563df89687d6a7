package domain

import "errors"

// OwnerKind identifies which principal type holds a list.
type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerSession OwnerKind = "session"
)

// MaxSessionTokenLength bounds the anonymous session token column.
const MaxSessionTokenLength = 64

// ErrInvalidOwner is returned when stored owner columns are both set or both empty.
var ErrInvalidOwner = errors.New("list owner must be exactly one of account or session")

// Owner is the principal holding a list: an account or an anonymous session.
// The zero value means "no identity available". Owner is comparable and can
// be used as a map key.
type Owner struct {
	kind OwnerKind
	id   string
}

// AccountOwner returns the owner for an authenticated account.
func AccountOwner(accountID string) Owner {
	return Owner{kind: OwnerAccount, id: accountID}
}

// SessionOwner returns the owner for an anonymous session token.
func SessionOwner(token string) Owner {
	return Owner{kind: OwnerSession, id: token}
}

// Kind returns the owner kind, empty for the zero Owner.
func (o Owner) Kind() OwnerKind { return o.kind }

// ID returns the account id or session token.
func (o Owner) ID() string { return o.id }

// IsZero reports whether no identity is attached.
func (o Owner) IsZero() bool { return o.kind == "" || o.id == "" }

// IsAccount reports whether the owner is an authenticated account.
func (o Owner) IsAccount() bool { return o.kind == OwnerAccount && o.id != "" }

// IsSession reports whether the owner is an anonymous session.
func (o Owner) IsSession() bool { return o.kind == OwnerSession && o.id != "" }

// Key renders the owner as "kind:id". Used for log fields, cache keys and
// the X-User-ID header sent to the cart service.
func (o Owner) Key() string {
	if o.IsZero() {
		return ""
	}
	return string(o.kind) + ":" + o.id
}

// String masks session tokens so owners can be logged safely.
func (o Owner) String() string {
	switch o.kind {
	case OwnerAccount:
		return o.Key()
	case OwnerSession:
		if len(o.id) > 6 {
			return "session:" + o.id[:6] + "…"
		}
		return "session:***"
	default:
		return "none"
	}
}

// Columns splits the owner into the nullable (owner_account_id,
// owner_session_token) pair stored on a list row.
func (o Owner) Columns() (accountID, sessionToken *string) {
	id := o.id
	switch o.kind {
	case OwnerAccount:
		return &id, nil
	case OwnerSession:
		return nil, &id
	default:
		return nil, nil
	}
}

// OwnerFromColumns rebuilds an Owner from the stored nullable columns.
// Exactly one of them must be set.
func OwnerFromColumns(accountID, sessionToken *string) (Owner, error) {
	hasAccount := accountID != nil && *accountID != ""
	hasSession := sessionToken != nil && *sessionToken != ""
	switch {
	case hasAccount && !hasSession:
		return AccountOwner(*accountID), nil
	case hasSession && !hasAccount:
		return SessionOwner(*sessionToken), nil
	default:
		return Owner{}, ErrInvalidOwner
	}
}
