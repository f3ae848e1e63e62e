package redis

const (
	// KeyPrefixFont is the prefix for font record hashes
	KeyPrefixFont = "typecore:font:"
	// KeyAllFonts is the key for the set of all cataloged identities
	KeyAllFonts = "typecore:fonts:all"
)

// Hash fields of a font record.
const (
	fieldIdentity       = "identity"
	fieldFamily         = "family"
	fieldSubfamily      = "subfamily"
	fieldFullName       = "full_name"
	fieldPostscriptName = "postscript_name"
	fieldActivated      = "activated"
	fieldSource         = "source"
	fieldRemoteURL      = "remote_url"
)

// FontKey returns the Redis key for a font record by identity
func FontKey(identity string) string {
	return KeyPrefixFont + identity
}

// AllFontsKey returns the key for the set of all identities
func AllFontsKey() string {
	return KeyAllFonts
}
