package gate

// Subject identifies the acting user for authorization decisions.
// The zero value means "no identity" and is rejected by Gate.Authorize.
type Subject struct {
	UserID uint
	Admin  bool
}

// Valid reports whether the subject carries an identity.
func (s Subject) Valid() bool { return s.UserID != 0 }
