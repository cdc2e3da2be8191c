package main

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// sendResetMail mails the password reset link through the configured SMTP relay.
func sendResetMail(to, link string) error {
	subject := "Reset Password Portal RT"
	body := "<p>Anda menerima email ini karena ada permintaan reset password.</p>" +
		"<p>Klik tautan berikut untuk mengubah password:</p>" +
		fmt.Sprintf("<p><a href=\"%s\">%s</a></p>", link, link) +
		"<p>Tautan berlaku selama 2 jam.</p>"
	return sendMail(to, subject, body)
}

func sendMail(to, subject, htmlBody string) error {
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	var msg strings.Builder
	msg.WriteString("From: " + cfg.SMTPFrom + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(htmlBody)
	return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, []byte(msg.String()))
}
