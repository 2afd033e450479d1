package mailer

import (
	"fmt"

	"github.com/stayserve/hotel-orders/pkg/logger"
)

// DevMailer prints the passcode instead of sending mail. Development only;
// this is the one place the plaintext passcode is allowed into logs.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendAdminPasscode(toEmail, toName, passcode string, expiryMinutes int) error {
	logger.Info("📧 [DEV MAIL] Admin Passcode",
		"to", toEmail,
		"name", toName,
		"passcode", passcode,
		"expiry_minutes", expiryMinutes,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 ADMIN PASSCODE EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your hotel admin login code\n"+
		"\n"+
		"Passcode: %s\n"+
		"Expires in: %d minutes\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, passcode, expiryMinutes)

	return nil
}
