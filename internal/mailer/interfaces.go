package mailer

// Service delivers the admin login passcode out-of-band.
type Service interface {
	SendAdminPasscode(toEmail, toName, passcode string, expiryMinutes int) error
}
