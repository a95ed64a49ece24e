package common

const (
	// AuthorizationHeaderName carries the access token on HTTP requests.
	AuthorizationHeaderName = "Authorization"
	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"

	// SaltSize is the number of random bytes in a newly generated user salt.
	SaltSize = 16

	// SMTPKeyField names the derived mail key inside a sealed secret.
	SMTPKeyField = "smtpKey"
)
