package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// SessionCookieName is the name of the cookie holding the web session token.
const SessionCookieName = "session"

// ReminderSubject is the fixed subject line of every reminder email.
const ReminderSubject = "Reminder"
