package session

// Persistent storage keys. Raw values unless noted.
const (
	KeyToken           = "token"
	KeyTokenExpiry     = "token_expiry" // unix seconds
	KeySessionID       = "session_id"
	KeyUser            = "userData"         // JSON
	KeyRole            = "current_role"     // raw
	KeySchool          = "current_school"   // JSON or cleared
	KeyRegion          = "current_region"   // JSON or cleared
	KeyPeriod          = "current_period"   // JSON or cleared
	KeySecondarySchool = "secondary_school" // "true"/"false" or cleared
)

// Keys lists every key owned by the session manager.
var Keys = []string{
	KeyToken,
	KeyTokenExpiry,
	KeySessionID,
	KeyUser,
	KeyRole,
	KeySchool,
	KeyRegion,
	KeyPeriod,
	KeySecondarySchool,
}
