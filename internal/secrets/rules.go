package secrets

// DefaultRules returns the credential rules applied to query strings,
// headers and free-form arguments. Each rule captures the value so the key
// survives redaction.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "password-param",
			Description: "Password query parameter",
			Pattern:     `(?i)password=([^&]*)`,
		},
		{
			ID:          "authorization-header",
			Description: "Authorization header",
			Pattern:     `(?i)authorization: (.+)`,
		},
		{
			ID:          "bearer-token",
			Description: "Bearer credential",
			Pattern:     `(?i)bearer (.+)`,
		},
		{
			ID:          "api-key-param",
			Description: "API key query parameter",
			Pattern:     `(?i)api[_-]?key=([^&]*)`,
		},
		{
			ID:          "token-param",
			Description: "Token query parameter",
			Pattern:     `(?i)token=([^&]*)`,
		},
		{
			ID:          "secret-param",
			Description: "Secret query parameter",
			Pattern:     `(?i)secret=([^&]*)`,
		},
	}
}

// DefaultSensitiveKeys returns the parameter-name fragments whose values are
// masked outright.
func DefaultSensitiveKeys() []string {
	return []string{"password", "passwd", "secret", "token", "api_key", "api-key", "apikey", "authorization"}
}
