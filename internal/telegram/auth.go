package telegram

// Authorizer decides whether a Telegram user may use the admin surface.
type Authorizer interface {
	IsAdmin(userID int64) bool
}

// singleAdmin authorizes exactly one Telegram user ID.
type singleAdmin struct {
	id int64
}

// NewSingleAdmin returns an Authorizer that accepts only the given ID.
func NewSingleAdmin(id int64) Authorizer {
	return singleAdmin{id: id}
}

func (a singleAdmin) IsAdmin(userID int64) bool {
	return userID == a.id
}
