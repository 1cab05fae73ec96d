package client

// CredentialProvider supplies the ambient credentials attached to requests.
// AuthToken is sent on every request, CSRFToken only on state-changing ones.
// Empty values are not sent.
type CredentialProvider interface {
	AuthToken() string
	CSRFToken() string
}

// StaticCredentials is a CredentialProvider with fixed values
type StaticCredentials struct {
	Token string
	CSRF  string
}

// AuthToken implements CredentialProvider
func (s StaticCredentials) AuthToken() string {
	return s.Token
}

// CSRFToken implements CredentialProvider
func (s StaticCredentials) CSRFToken() string {
	return s.CSRF
}

// CredentialFunc adapts two functions into a CredentialProvider.
type CredentialFunc struct {
	Token func() string
	CSRF  func() string
}

// AuthToken implements CredentialProvider
func (f CredentialFunc) AuthToken() string {
	if f.Token == nil {
		return ""
	}
	return f.Token()
}

// CSRFToken implements CredentialProvider
func (f CredentialFunc) CSRFToken() string {
	if f.CSRF == nil {
		return ""
	}
	return f.CSRF()
}
