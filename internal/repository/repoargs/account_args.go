package repoargs

type CreateAccount struct {
	UserID string
	Name   string
	Email  string
}
