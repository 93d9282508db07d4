package models

// User is the slice of the directory record this core needs: an identity to
// bind codes and tokens to, and the active flag checked at every redemption.
// Passwords, sessions, and profile data live in the external directory.
type User struct {
	ID     string
	Email  string
	Name   string
	Active bool
}
