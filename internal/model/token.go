package model

// TokenManager generates and validates access tokens.
type TokenManager interface {
	GenerateAccessToken(username string) (string, error)
	ParseAccessToken(token string) (string, error)
}
